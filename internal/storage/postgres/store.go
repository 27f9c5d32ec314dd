package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/fish-storefront/internal/storage"
)

const (
	getEntrySQL = `SELECT value FROM storage_entries WHERE key = $1`

	upsertEntrySQL = `INSERT INTO storage_entries (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	deleteEntrySQL = `DELETE FROM storage_entries WHERE key = $1`
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on the storage_entries table. Values must
// be JSON documents since the column is JSONB.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.pool.QueryRow(ctx, getEntrySQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get %q", key)
	}
	return value, nil
}

// Set implements storage.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	// Pass as string so pgx sends text and the server parses it as JSONB.
	if _, err := s.pool.Exec(ctx, upsertEntrySQL, key, string(value)); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

// Delete implements storage.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteEntrySQL, key); err != nil {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}

// Ping checks the connection to PostgreSQL.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
