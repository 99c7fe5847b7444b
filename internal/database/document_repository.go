package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/models"
)

// DocumentDistance is a raw nearest-neighbor hit: the stored document and
// its cosine distance in [0,2]. Normalization to a similarity score is the
// retriever's job.
type DocumentDistance struct {
	Document models.Document
	Distance float64
}

// DocumentRepository persists chunk rows and their embeddings and runs the
// nearest-neighbor primitive against the pgvector index.
type DocumentRepository struct {
	db     *DB
	logger *logrus.Logger
}

func NewDocumentRepository(db *DB, logger *logrus.Logger) *DocumentRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &DocumentRepository{db: db, logger: logger}
}

// StoreChunk inserts a document row and its embedding in one transaction.
// A failure rolls back this chunk only; sibling chunks are unaffected.
func (r *DocumentRepository) StoreChunk(ctx context.Context, filename, content string, chunkIndex int, embedding []float32) (int64, error) {
	sum := sha256.Sum256([]byte(content))
	contentHash := hex.EncodeToString(sum[:])

	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var documentID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO documents (filename, content, file_hash, chunk_index)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		filename, content, contentHash, chunkIndex,
	).Scan(&documentID)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO embeddings (document_id, embedding) VALUES ($1, $2)`,
		documentID, pgvector.NewVector(embedding),
	)
	if err != nil {
		return 0, fmt.Errorf("insert embedding: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"filename":    filename,
		"document_id": documentID,
		"dimension":   len(embedding),
	}).Debug("Stored document chunk with embedding")

	return documentID, nil
}

// Nearest runs the cosine nearest-neighbor query. When scope is non-nil only
// documents belonging to that collection are eligible; the filter runs
// store-side so the limit budget is not wasted on out-of-scope rows.
func (r *DocumentRepository) Nearest(ctx context.Context, queryVector []float32, limit int, scope *int64) ([]DocumentDistance, error) {
	vec := pgvector.NewVector(queryVector)

	query := `
		SELECT d.id, d.filename, d.content, d.file_hash, d.chunk_index,
		       d.created_at, d.updated_at,
		       e.embedding <=> $1 AS distance
		FROM documents d
		JOIN embeddings e ON d.id = e.document_id`
	args := []any{vec}
	if scope != nil {
		query += `
		WHERE d.filename LIKE $3 ESCAPE '\'`
		args = append(args, limit, collectionPattern(*scope))
	} else {
		args = append(args, limit)
	}
	query += `
		ORDER BY distance ASC, d.id ASC
		LIMIT $2`

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("nearest-neighbor query: %w", err)
	}
	defer rows.Close()

	var hits []DocumentDistance
	for rows.Next() {
		var hit DocumentDistance
		if err := rows.Scan(
			&hit.Document.ID, &hit.Document.Filename, &hit.Document.Content,
			&hit.Document.ContentHash, &hit.Document.ChunkIndex,
			&hit.Document.CreatedAt, &hit.Document.UpdatedAt,
			&hit.Distance,
		); err != nil {
			return nil, fmt.Errorf("scan nearest-neighbor row: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nearest-neighbor rows: %w", err)
	}

	return hits, nil
}

// collectionPattern builds the LIKE pattern scoping rows to one collection.
// The separator is escaped because a bare `_` is a single-character LIKE
// wildcard: `1_%` would also match collection 12's `12_doc_chunk_0`.
func collectionPattern(scope int64) string {
	return fmt.Sprintf(`%d\_%%`, scope)
}

// Counts reports corpus-level document and embedding totals.
func (r *DocumentRepository) Counts(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&stats.DocumentCount); err != nil {
		return models.Stats{}, fmt.Errorf("count documents: %w", err)
	}
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&stats.EmbeddingCount); err != nil {
		return models.Stats{}, fmt.Errorf("count embeddings: %w", err)
	}
	return stats, nil
}
