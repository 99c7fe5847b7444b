package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_EmptyInput(t *testing.T) {
	c := NewWordChunker(1000, 0.25)

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestChunk_SingleOversizedToken(t *testing.T) {
	c := NewWordChunker(10, 0.25)
	token := strings.Repeat("x", 50)

	chunks := c.Split(token)

	require.Len(t, chunks, 1)
	assert.Equal(t, token, chunks[0], "oversized token must be kept whole")
}

func TestChunk_FitsInOneChunk(t *testing.T) {
	c := NewWordChunker(1000, 0.25)

	chunks := c.Split("the quick brown fox")

	require.Len(t, chunks, 1)
	assert.Equal(t, "the quick brown fox", chunks[0])
}

func TestChunk_RespectsTargetSize(t *testing.T) {
	c := NewWordChunker(100, 0.25)
	words := make([]string, 500)
	for i := range words {
		words[i] = fmt.Sprintf("word%03d", i)
	}

	for _, chunk := range c.Split(strings.Join(words, " ")) {
		assert.LessOrEqual(t, len(chunk), 100)
	}
}

// A large token arriving right after a flush must not ride on top of the
// overlap seed past the budget; the seed sheds its oldest tokens instead.
func TestChunk_SeedPlusLargeTokenStaysWithinBudget(t *testing.T) {
	var words []string
	for i := 0; i < 20; i++ {
		words = append(words, fmt.Sprintf("t%03d", i))
	}
	words = append(words, "L"+strings.Repeat("x", 79))
	for i := 20; i < 60; i++ {
		words = append(words, fmt.Sprintf("t%03d", i))
	}
	c := NewWordChunker(100, 0.25)

	chunks := c.Split(strings.Join(words, " "))

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		if len(strings.Fields(chunk)) > 1 {
			assert.LessOrEqual(t, len(chunk), 100)
		}
	}

	var rebuilt []string
	for i, chunk := range chunks {
		toks := strings.Fields(chunk)
		if i > 0 {
			toks = toks[actualOverlap(strings.Fields(chunks[i-1]), toks):]
		}
		rebuilt = append(rebuilt, toks...)
	}
	assert.Equal(t, words, rebuilt, "shed seed tokens must not lose or duplicate input")
}

func TestChunk_HighOverlapFractionStaysWithinBudget(t *testing.T) {
	words := make([]string, 80)
	for i := range words {
		words[i] = fmt.Sprintf("piece%04d", i)
	}
	c := NewWordChunker(60, 0.9)

	chunks := c.Split(strings.Join(words, " "))

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		if len(strings.Fields(chunk)) > 1 {
			assert.LessOrEqual(t, len(chunk), 60)
		}
	}
}

// actualOverlap reports how many leading tokens of next repeat the trailing
// tokens of prev.
func actualOverlap(prev, next []string) int {
	max := len(prev)
	if len(next) < max {
		max = len(next)
	}
	for k := max; k > 0; k-- {
		match := true
		for i := 0; i < k; i++ {
			if prev[len(prev)-k+i] != next[i] {
				match = false
				break
			}
		}
		if match {
			return k
		}
	}
	return 0
}

func TestChunk_OverlapSeedsNextChunk(t *testing.T) {
	c := NewWordChunker(100, 0.25)
	words := make([]string, 200)
	for i := range words {
		words[i] = fmt.Sprintf("w%04d", i)
	}

	chunks := c.Split(strings.Join(words, " "))
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		k := c.OverlapTokens(len(prev))
		require.Greater(t, k, 0)
		expected := strings.Join(prev[len(prev)-k:], " ")
		assert.True(t, strings.HasPrefix(chunks[i], expected),
			"chunk %d must begin with the trailing %d tokens of chunk %d", i, k, i-1)
	}
}

// Dropping each chunk's overlap seed and concatenating must reconstruct the
// original token sequence exactly: nothing lost, nothing duplicated beyond
// the declared overlap.
func TestChunk_CoverageProperty(t *testing.T) {
	cases := []struct {
		name    string
		target  int
		overlap float64
		words   int
	}{
		{"default params", 1000, 0.25, 2500},
		{"small chunks", 60, 0.25, 300},
		{"no overlap", 80, 0, 150},
		{"half overlap", 120, 0.5, 400},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			words := make([]string, tc.words)
			for i := range words {
				words[i] = fmt.Sprintf("tok%05d", i)
			}
			c := NewWordChunker(tc.target, tc.overlap)
			chunks := c.Split(strings.Join(words, " "))
			require.NotEmpty(t, chunks)

			var rebuilt []string
			for i, chunk := range chunks {
				toks := strings.Fields(chunk)
				if i > 0 {
					prev := strings.Fields(chunks[i-1])
					toks = toks[c.OverlapTokens(len(prev)):]
				}
				rebuilt = append(rebuilt, toks...)
			}
			assert.Equal(t, words, rebuilt)
		})
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := NewWordChunker(90, 0.25)
	words := make([]string, 400)
	for i := range words {
		words[i] = fmt.Sprintf("item%04d", i)
	}
	text := strings.Join(words, " ")

	first := c.Split(text)
	second := c.Split(text)

	assert.Equal(t, first, second)
}

func TestChunk_Restartable(t *testing.T) {
	c := NewWordChunker(50, 0.25)
	seq := c.Chunk("alpha beta gamma delta epsilon zeta eta theta iota kappa")

	var a, b []string
	for chunk := range seq {
		a = append(a, chunk)
	}
	for chunk := range seq {
		b = append(b, chunk)
	}

	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
}

func TestChunk_LongDocumentScenario(t *testing.T) {
	words := make([]string, 2500)
	for i := range words {
		words[i] = fmt.Sprintf("w%04d", i)
	}
	c := NewWordChunker(1000, 0.25)

	chunks := c.Split(strings.Join(words, " "))

	require.Greater(t, len(chunks), 1)
	last := chunks[len(chunks)-1]
	assert.Less(t, len(last), 1000, "final chunk carries the remainder")

	prev := strings.Fields(chunks[0])
	k := c.OverlapTokens(len(prev))
	assert.InDelta(t, float64(len(prev))*0.25, float64(k), 1)
	assert.True(t, strings.HasPrefix(chunks[1], strings.Join(prev[len(prev)-k:], " ")))
}

func TestNewWordChunker_Defaults(t *testing.T) {
	c := NewWordChunker(0, -1)

	assert.Equal(t, DefaultTargetSize, c.targetSize)
	assert.Equal(t, DefaultOverlapFraction, c.overlapFraction)
}
