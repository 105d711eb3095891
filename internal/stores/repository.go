package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads stores from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Store implements Lookup.
func (r *Repository) Store(ctx context.Context, id int64) (Store, error) {
	const query = `SELECT id, name, contact, address FROM stores WHERE id = $1`

	var s Store
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Contact, &s.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Store{}, ErrStoreNotFound
		}
		return Store{}, fmt.Errorf("stores: get store: %w", err)
	}
	return s, nil
}

// Credentials implements Lookup.
func (r *Repository) Credentials(ctx context.Context, id int64) (Store, string, error) {
	const query = `SELECT id, name, contact, address, api_key_hash FROM stores WHERE id = $1`

	var s Store
	var hash string
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Contact, &s.Address, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Store{}, "", ErrStoreNotFound
		}
		return Store{}, "", fmt.Errorf("stores: get credentials: %w", err)
	}
	return s, hash, nil
}
