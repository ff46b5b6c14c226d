package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/costdesk/costdesk/internal/platform/db"
)

// Postgres stores collections as jsonb documents.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pool. Call Migrate once before use.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the collections table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if p == nil || p.pool == nil {
		return ErrClosed
	}
	_, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS collections (
	key TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	if err != nil {
		return fmt.Errorf("storage/postgres: migrate: %w", err)
	}
	return nil
}

// Load implements Backend.
func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	if p == nil || p.pool == nil {
		return nil, ErrClosed
	}
	var payload string
	err := p.pool.QueryRow(ctx, `SELECT payload::text FROM collections WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: load %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Save implements Backend.
func (p *Postgres) Save(ctx context.Context, key string, payload []byte) error {
	if p == nil || p.pool == nil {
		return ErrClosed
	}
	err := db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO collections (key, payload, updated_at) VALUES ($1, $2::jsonb, NOW())
ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`, key, string(payload))
		return err
	})
	if err != nil {
		return fmt.Errorf("storage/postgres: save %s: %w", key, err)
	}
	return nil
}
