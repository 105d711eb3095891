package search

import (
	"time"

	"github.com/google/uuid"
)

// Offer is one store's availability of a product, taken from a single batch.
type Offer struct {
	StoreID       int64     `json:"storeId"`
	StoreName     string    `json:"storeName"`
	Contact       string    `json:"contact"`
	Address       string    `json:"address"`
	BatchID       uuid.UUID `json:"batchId"`
	BatchNumber   string    `json:"batchNumber"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	IsAvailable   bool      `json:"isAvailable"`
	ExpiryDate    time.Time `json:"expiryDate"`
}

// ProductGroup aggregates every store's offers for one catalog product.
type ProductGroup struct {
	ProductID            int64   `json:"productId"`
	Name                 string  `json:"name"`
	Brand                string  `json:"brand"`
	GenericName          string  `json:"genericName"`
	Category             string  `json:"category"`
	PrescriptionRequired bool    `json:"prescriptionRequired"`
	Offers               []Offer `json:"offers"`
	MinPrice             float64 `json:"minPrice"`
	MaxPrice             float64 `json:"maxPrice"`
	AvgPrice             float64 `json:"avgPrice"`
	TotalStores          int     `json:"totalStores"`
}

// Query is one public search request.
type Query struct {
	Text              string
	Category          string
	IncludeOutOfStock bool
	SortBy            string
	SortOrder         string
	Page              int
	PerPage           int
}

// Result is the paginated search response.
type Result struct {
	Products []ProductGroup `json:"products"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	Pages    int            `json:"pages"`
	Limit    int            `json:"limit"`
}

// Record is one row of the batches-products-stores join.
type Record struct {
	ProductID            int64
	Name                 string
	Brand                string
	GenericName          string
	Category             string
	PrescriptionRequired bool
	Offer                Offer
}
