package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/groundctx/ragserver/internal/models"
)

// ErrProfileNotFound is returned when no active profile matches the lookup.
var ErrProfileNotFound = errors.New("rag profile not found")

// ProfileRepository reads RAG profiles (rag_models rows). Inactive profiles
// are never returned.
type ProfileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, name, vector_id, system_prompt, context, is_active, created_at, updated_at`

func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*models.RagProfile, error) {
	row := r.db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM rag_models WHERE id = $1 AND is_active = true`, id)
	return scanProfile(row)
}

func (r *ProfileRepository) GetByName(ctx context.Context, name string) (*models.RagProfile, error) {
	row := r.db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM rag_models WHERE name = $1 AND is_active = true`, name)
	return scanProfile(row)
}

// ListActive returns every active profile, newest first.
func (r *ProfileRepository) ListActive(ctx context.Context) ([]models.RagProfile, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM rag_models WHERE is_active = true ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.RagProfile
	for rows.Next() {
		p, err := scanProfileRow(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func scanProfile(row pgx.Row) (*models.RagProfile, error) {
	p, err := scanProfileRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

func scanProfileRow(row pgx.Row) (*models.RagProfile, error) {
	var p models.RagProfile
	var context sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.CollectionID, &p.SystemPrompt,
		&context, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Context = context.String
	return &p, nil
}
