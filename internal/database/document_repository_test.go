package database

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionPattern_EscapesChunkSeparator(t *testing.T) {
	assert.Equal(t, `1\_%`, collectionPattern(1))
	assert.Equal(t, `12\_%`, collectionPattern(12))
}

// Collection 1's pattern must never match collection 12's rows: an unescaped
// `_` is a single-character LIKE wildcard, so `1_%` would accept
// `12_doc_chunk_0`.
func TestCollectionPattern_CollidingIDsStayIsolated(t *testing.T) {
	one := collectionPattern(1)
	twelve := collectionPattern(12)

	assert.True(t, likeMatch(one, "1_manual.txt_chunk_0"))
	assert.False(t, likeMatch(one, "12_manual.txt_chunk_0"))
	assert.True(t, likeMatch(twelve, "12_manual.txt_chunk_0"))
	assert.False(t, likeMatch(twelve, "1_manual.txt_chunk_0"))
	assert.False(t, likeMatch(one, "manual.txt_chunk_0"))
}

// likeMatch evaluates a SQL LIKE pattern with `\` as the escape character,
// the semantics the scope filter relies on.
func likeMatch(pattern, s string) bool {
	var re strings.Builder
	re.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			re.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			re.WriteString(".*")
		case r == '_':
			re.WriteString(".")
		default:
			re.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	re.WriteString("$")
	return regexp.MustCompile(re.String()).MatchString(s)
}

func TestLikeMatch(t *testing.T) {
	require.True(t, likeMatch("1_%", "12_doc"), "unescaped separator is a wildcard")
	require.False(t, likeMatch(`1\_%`, "12_doc"))
	require.True(t, likeMatch(`1\_%`, "1_doc"))
}
