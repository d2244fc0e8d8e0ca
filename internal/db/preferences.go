package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-spotify-moodsync/internal/preferences"
)

// PreferenceRepository stores one preferences document per owner as JSONB.
type PreferenceRepository struct {
	pool *pgxpool.Pool
}

// Get returns the raw document for owner, or ErrNotFound.
func (r *PreferenceRepository) Get(ctx context.Context, owner string) ([]byte, error) {
	query := `SELECT document FROM preference_documents WHERE owner = $1`

	var doc []byte
	err := r.pool.QueryRow(ctx, query, owner).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	return doc, nil
}

// Put replaces the document for owner.
func (r *PreferenceRepository) Put(ctx context.Context, owner string, doc []byte) error {
	query := `
		INSERT INTO preference_documents (owner, document, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (owner) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, owner, string(doc)); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// Backend returns a preferences.Backend bound to owner.
func (r *PreferenceRepository) Backend(owner string) preferences.Backend {
	return &preferenceBackend{repo: r, owner: owner}
}

type preferenceBackend struct {
	repo  *PreferenceRepository
	owner string
}

func (b *preferenceBackend) Load(ctx context.Context) ([]byte, error) {
	doc, err := b.repo.Get(ctx, b.owner)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

func (b *preferenceBackend) Save(ctx context.Context, data []byte) error {
	return b.repo.Put(ctx, b.owner, data)
}
