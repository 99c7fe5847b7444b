// Package retriever issues similarity queries against the vector-capable
// storage engine and interprets its raw distances as ranked results.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/database"
	"github.com/groundctx/ragserver/internal/models"
)

// NearestNeighborStore is the external storage-engine primitive: cosine
// nearest-neighbor ordering over stored vectors, optionally scoped to a
// collection via a store-side filter.
type NearestNeighborStore interface {
	Nearest(ctx context.Context, queryVector []float32, limit int, scope *int64) ([]database.DocumentDistance, error)
}

// Retriever converts store distances to normalized similarities and applies
// threshold and limit semantics.
type Retriever struct {
	store  NearestNeighborStore
	logger *logrus.Logger
}

func New(store NearestNeighborStore, logger *logrus.Logger) *Retriever {
	if logger == nil {
		logger = logrus.New()
	}
	return &Retriever{store: store, logger: logger}
}

// Search returns at most limit results with similarity >= scoreThreshold,
// ordered descending by similarity with ties broken by ascending document
// ID. An empty result set is valid when nothing clears the threshold.
func (r *Retriever) Search(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64, scope *int64) ([]models.SimilarityResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	hits, err := r.store.Nearest(ctx, queryVector, limit, scope)
	if err != nil {
		return nil, fmt.Errorf("vector store search: %w", err)
	}

	results := make([]models.SimilarityResult, 0, len(hits))
	for _, hit := range hits {
		similarity := Similarity(hit.Distance)
		if similarity < scoreThreshold {
			continue
		}
		results = append(results, models.SimilarityResult{
			Document:   hit.Document,
			Similarity: similarity,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	r.logger.WithFields(logrus.Fields{
		"candidates": len(hits),
		"results":    len(results),
		"threshold":  scoreThreshold,
		"scoped":     scope != nil,
	}).Debug("Similarity search completed")

	return results, nil
}

// Similarity normalizes a cosine distance in [0,2] into a score in [0,1]
// where higher means closer.
func Similarity(distance float64) float64 {
	return 1 - distance/2
}
