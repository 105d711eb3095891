// Package catalog provides read-only access to the product master list.
// The rest of the system treats it as an immutable reference table.
package catalog

import (
	"context"
	"errors"
)

// Product describes catalog metadata for one product id.
type Product struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	Brand                string `json:"brand"`
	GenericName          string `json:"genericName"`
	Category             string `json:"category"`
	PrescriptionRequired bool   `json:"prescriptionRequired"`
}

// Lookup fetches product metadata by id.
type Lookup interface {
	Product(ctx context.Context, id int64) (Product, error)
}

// ErrProductNotFound indicates the product id is not in the catalog.
var ErrProductNotFound = errors.New("catalog: product not found")
