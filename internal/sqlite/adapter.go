// Package sqlite stores preference documents in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // driver

	"github.com/justestif/go-spotify-moodsync/internal/preferences"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "moodsync.db"

// Adapter holds the SQLite connection.
type Adapter struct {
	db *sql.DB
}

// NewAdapter opens the database at path and runs the schema migration.
func NewAdapter(path string) (*Adapter, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	a := &Adapter{db: db}
	if err := a.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return a, nil
}

// Close closes the database.
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) migrate() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS preference_documents (
			owner      TEXT PRIMARY KEY,
			document   TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// Document returns the stored document for owner, or nil if there is none.
func (a *Adapter) Document(ctx context.Context, owner string) ([]byte, error) {
	var doc string
	err := a.db.QueryRowContext(ctx,
		"SELECT document FROM preference_documents WHERE owner = ?", owner).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading preferences for %s: %w", owner, err)
	}
	return []byte(doc), nil
}

// PutDocument replaces the document for owner.
func (a *Adapter) PutDocument(ctx context.Context, owner string, doc []byte) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO preference_documents (owner, document, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner) DO UPDATE SET
			document = excluded.document,
			updated_at = CURRENT_TIMESTAMP
	`, owner, string(doc))
	if err != nil {
		return fmt.Errorf("saving preferences for %s: %w", owner, err)
	}
	return nil
}

// Backend returns a preferences.Backend bound to owner.
func (a *Adapter) Backend(owner string) preferences.Backend {
	return backend{adapter: a, owner: owner}
}

type backend struct {
	adapter *Adapter
	owner   string
}

func (b backend) Load(ctx context.Context) ([]byte, error) {
	return b.adapter.Document(ctx, b.owner)
}

func (b backend) Save(ctx context.Context, data []byte) error {
	return b.adapter.PutDocument(ctx, b.owner, data)
}
