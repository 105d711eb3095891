package stores

import (
	"context"
	"errors"
)

// Store is a pharmacy tenant. Inventory and sales are always scoped to one.
type Store struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

// Lookup reads store profiles and credentials.
type Lookup interface {
	Store(ctx context.Context, id int64) (Store, error)
	// Credentials returns the store plus its API key hash for verification.
	Credentials(ctx context.Context, id int64) (Store, string, error)
}

// ErrStoreNotFound indicates the store id does not resolve.
var ErrStoreNotFound = errors.New("stores: store not found")
