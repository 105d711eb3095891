package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pharmanet/pharmanet/internal/catalog"
)

// DefaultMinStockAlert applies when a batch is created without a threshold.
const DefaultMinStockAlert = 10

// ExpiringSoonWindow is how far ahead a batch counts as expiring soon.
const ExpiringSoonWindow = 30 * 24 * time.Hour

// Batch is one distinctly tracked lot of a product at one store. Batches of
// the same product are never merged; traceability requires them separate.
type Batch struct {
	ID            uuid.UUID `json:"id"`
	StoreID       int64     `json:"storeId"`
	ProductID     int64     `json:"productId"`
	BatchNumber   string    `json:"batchNumber"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	ExpiryDate    time.Time `json:"expiryDate"`
	MinStockAlert int       `json:"minStockAlert"`
	IsAvailable   bool      `json:"isAvailable"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsExpired reports whether the batch has passed its expiry date.
func (b Batch) IsExpired(now time.Time) bool {
	return b.ExpiryDate.Before(now)
}

// IsLowStock reports whether the quantity is at or below the alert threshold.
func (b Batch) IsLowStock() bool {
	return b.StockQuantity <= b.MinStockAlert
}

// IsExpiringSoon reports whether the batch expires within the alert window.
func (b Batch) IsExpiringSoon(now time.Time) bool {
	if b.IsExpired(now) {
		return false
	}
	return !b.ExpiryDate.After(now.Add(ExpiringSoonWindow))
}

// Available derives availability from stored fields. The persisted
// is_available column is write-through only; reads recompute.
func (b Batch) Available(now time.Time) bool {
	return b.StockQuantity > 0 && !b.IsExpired(now)
}

// Refresh recomputes the derived availability flag before a write.
func (b *Batch) Refresh(now time.Time) {
	b.IsAvailable = b.Available(now)
}

// BatchView joins a batch with its catalog product and derived flags for
// listing responses.
type BatchView struct {
	Batch
	Product        catalog.Product `json:"product"`
	IsExpired      bool            `json:"isExpired"`
	IsLowStock     bool            `json:"isLowStock"`
	IsExpiringSoon bool            `json:"isExpiringSoon"`
}

// CreateBatchInput carries the fields for a new batch.
type CreateBatchInput struct {
	ProductID     int64
	BatchNumber   string
	Price         float64
	StockQuantity int
	ExpiryDate    time.Time
	MinStockAlert *int
}

// UpdateBatchInput is a partial update; nil fields are left unchanged.
// The batch number is immutable once created.
type UpdateBatchInput struct {
	Price         *float64
	StockQuantity *int
	ExpiryDate    *time.Time
	MinStockAlert *int
	IsAvailable   *bool
}

// ListFilter narrows and orders a store's batch listing.
type ListFilter struct {
	Category  string
	Search    string
	SortBy    string
	SortOrder string
}

// Stats is a point-in-time snapshot over one store's batches.
type Stats struct {
	TotalUniqueProducts int `json:"totalUniqueProducts"`
	OutOfStock          int `json:"outOfStock"`
	LowStock            int `json:"lowStock"`
	Expired             int `json:"expired"`
	ExpiringSoon        int `json:"expiringSoon"`
}

// StoreAlertSummary aggregates alert counts for one store, used by the
// periodic stock alert scan.
type StoreAlertSummary struct {
	StoreID      int64
	StoreName    string
	LowStock     int
	ExpiringSoon int
	Expired      int
}

var (
	// ErrBatchNotFound indicates the batch does not exist or is not owned by the caller.
	ErrBatchNotFound = errors.New("inventory: batch not found")
	// ErrDuplicateBatch indicates the (store, product, batch number) key already exists.
	ErrDuplicateBatch = errors.New("inventory: batch number already exists for this product")
	// ErrInsufficientStock indicates a decrement larger than the current quantity.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidInput indicates missing or out-of-range fields.
	ErrInvalidInput = errors.New("inventory: invalid input")
)
