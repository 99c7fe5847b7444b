// Package assembler converts ranked similarity results into a size-bounded
// context block plus per-source citation snippets.
package assembler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/groundctx/ragserver/internal/models"
)

const (
	// Separator joins context blocks in the final prompt context.
	Separator = "\n\n---\n\n"
	// SnippetLength bounds the citation snippet shown per source.
	SnippetLength = 300

	truncationMarker = "... [TRUNCATED]"
)

// Assembly is the outcome of one context assembly pass.
type Assembly struct {
	ContextText string
	Sources     []models.Source
}

// Assembler builds prompt context under a hard character budget shared
// equally across the included documents.
type Assembler struct {
	maxTotalChars int
	maxDocuments  int
}

func New(maxTotalChars, maxDocuments int) *Assembler {
	if maxTotalChars <= 0 {
		maxTotalChars = 8000
	}
	if maxDocuments <= 0 {
		maxDocuments = 10
	}
	return &Assembler{maxTotalChars: maxTotalChars, maxDocuments: maxDocuments}
}

// Assemble takes at most maxDocuments top results (already ranked by the
// retriever), truncates each to an equal share of the character budget, and
// concatenates the blocks. profileContext and callerContext are prepended in
// that fixed order, each only when non-empty.
func (a *Assembler) Assemble(results []models.SimilarityResult, profileContext, callerContext string) Assembly {
	perDocBudget := a.maxTotalChars / a.maxDocuments

	var blocks []string
	var sources []models.Source
	for i, res := range results {
		if i >= a.maxDocuments {
			break
		}
		content := res.Document.Content
		if len(content) > perDocBudget {
			content = TruncateAtSentence(content, perDocBudget) + truncationMarker
		}

		blocks = append(blocks, fmt.Sprintf("Source: %s (Similarity: %.3f)\n%s",
			res.Document.Filename, res.Similarity, content))
		sources = append(sources, models.Source{
			Filename:   res.Document.Filename,
			ChunkIndex: res.Document.ChunkIndex,
			Similarity: res.Similarity,
			Snippet:    Snippet(res.Document.Content),
		})
	}

	parts := make([]string, 0, len(blocks)+2)
	if profileContext != "" {
		parts = append(parts, profileContext)
	}
	if callerContext != "" {
		parts = append(parts, callerContext)
	}
	parts = append(parts, blocks...)

	return Assembly{
		ContextText: strings.Join(parts, Separator),
		Sources:     sources,
	}
}

// Snippet returns the first ~300 characters of content, cut on a rune
// boundary, with an ellipsis when shortened. Derived from the full document
// content, not the prompt-truncated form.
func Snippet(content string) string {
	if len(content) <= SnippetLength {
		return content
	}
	return TruncateAtBoundary(content, SnippetLength) + "..."
}

// TruncateAtBoundary cuts s to at most max bytes without splitting a
// multi-byte rune. The result always round-trips as valid UTF-8.
func TruncateAtBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// TruncateAtSentence cuts s to at most max bytes, preferring the last
// sentence-terminal character at or before the boundary. When no terminal
// exists in range it falls back to the rune-safe hard cut.
func TruncateAtSentence(s string, max int) string {
	cut := TruncateAtBoundary(s, max)
	if idx := strings.LastIndexAny(cut, ".!?"); idx >= 0 {
		return cut[:idx+1]
	}
	return cut
}
