// Package chunker splits raw document text into overlapping, bounded-size
// segments suitable for embedding and retrieval indexing.
package chunker

import (
	"iter"
	"math"
	"strings"
)

const (
	// DefaultTargetSize is the chunk size budget in characters.
	DefaultTargetSize = 1000
	// DefaultOverlapFraction is the trailing fraction of a chunk's tokens
	// carried into the next chunk.
	DefaultOverlapFraction = 0.25
)

// WordChunker accumulates whitespace-delimited tokens into chunks of at most
// targetSize characters, seeding each new chunk with the trailing
// overlapFraction of the previous chunk's tokens. Splitting never happens
// inside a token, so a single token longer than targetSize is kept whole.
type WordChunker struct {
	targetSize      int
	overlapFraction float64
}

// NewWordChunker validates parameters and applies defaults for
// non-positive sizes and out-of-range fractions.
func NewWordChunker(targetSize int, overlapFraction float64) *WordChunker {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if overlapFraction < 0 || overlapFraction >= 1 {
		overlapFraction = DefaultOverlapFraction
	}
	return &WordChunker{targetSize: targetSize, overlapFraction: overlapFraction}
}

// Chunk returns a lazy, finite, restartable sequence of chunks. The sequence
// is deterministic: the same text and parameters always yield the same
// chunks, and re-iterating starts over from the beginning.
func (c *WordChunker) Chunk(text string) iter.Seq[string] {
	tokens := strings.Fields(text)
	return func(yield func(string) bool) {
		if len(tokens) == 0 {
			return
		}
		var cur []string
		curLen := 0
		for _, tok := range tokens {
			added := len(tok)
			if curLen > 0 {
				added++ // joining space
			}
			if curLen+added > c.targetSize && len(cur) > 0 {
				if !yield(strings.Join(cur, " ")) {
					return
				}
				cur = c.carryOver(cur)
				curLen = joinedLen(cur)
				// Seed tokens duplicate the previous chunk's tail; shed the
				// oldest ones when the seed plus this token would overflow,
				// so only a single oversized token can exceed the budget.
				for len(cur) > 0 && curLen+1+len(tok) > c.targetSize {
					curLen -= len(cur[0])
					if len(cur) > 1 {
						curLen--
					}
					cur = cur[1:]
				}
				added = len(tok)
				if curLen > 0 {
					added++
				}
			}
			cur = append(cur, tok)
			curLen += added
		}
		if len(cur) > 0 {
			yield(strings.Join(cur, " "))
		}
	}
}

// Split collects the chunk sequence into a slice.
func (c *WordChunker) Split(text string) []string {
	var out []string
	for chunk := range c.Chunk(text) {
		out = append(out, chunk)
	}
	return out
}

// OverlapTokens reports how many trailing tokens of a chunk with n tokens
// are carried into the next chunk.
func (c *WordChunker) OverlapTokens(n int) int {
	k := int(math.Round(float64(n) * c.overlapFraction))
	if k >= n {
		k = n - 1
	}
	if k < 0 {
		k = 0
	}
	return k
}

func (c *WordChunker) carryOver(cur []string) []string {
	k := c.OverlapTokens(len(cur))
	if k == 0 {
		return nil
	}
	carried := make([]string, k)
	copy(carried, cur[len(cur)-k:])
	return carried
}

func joinedLen(tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}
	n := len(tokens) - 1
	for _, t := range tokens {
		n += len(t)
	}
	return n
}
