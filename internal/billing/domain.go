package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod enumerates how a sale was paid.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodOnline PaymentMethod = "online"
)

// Valid reports whether the payment method is a known value.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOnline:
		return true
	}
	return false
}

// PaymentStatus enumerates the settlement state of a sale.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Sale is an immutable record of one completed checkout. Line items snapshot
// product and batch fields at sale time; later batch edits never change a bill.
type Sale struct {
	ID            uuid.UUID     `json:"id"`
	StoreID       int64         `json:"storeId"`
	CustomerName  string        `json:"customerName,omitempty"`
	CustomerPhone string        `json:"customerPhone,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Items         []SaleItem    `json:"items"`
	TotalAmount   float64       `json:"totalAmount"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// SaleItem is one line of a sale with its point-in-time snapshot.
type SaleItem struct {
	ProductID   int64     `json:"productId"`
	BatchID     uuid.UUID `json:"batchId"`
	ProductName string    `json:"productName"`
	BatchNumber string    `json:"batchNumber"`
	Quantity    int       `json:"quantity"`
	SoldPrice   float64   `json:"soldPrice"`
}

// SaleItemInput names a batch and how many units to sell from it.
type SaleItemInput struct {
	BatchID  uuid.UUID
	Quantity int
}

// CreateSaleInput carries a checkout request for one store.
type CreateSaleInput struct {
	CustomerName  string
	CustomerPhone string
	PaymentMethod PaymentMethod
	Items         []SaleItemInput
}

var (
	// ErrEmptyCart indicates a sale with no items.
	ErrEmptyCart = errors.New("billing: sale must contain at least one item")
	// ErrInvalidQuantity indicates a line quantity below one.
	ErrInvalidQuantity = errors.New("billing: item quantity must be >= 1")
	// ErrInvalidPaymentMethod indicates an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("billing: invalid payment method")
	// ErrSaleNotFound indicates the sale does not exist or is not owned by the caller.
	ErrSaleNotFound = errors.New("billing: sale not found")
)
