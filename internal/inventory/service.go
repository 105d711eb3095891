package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmanet/pharmanet/internal/catalog"
	"github.com/pharmanet/pharmanet/internal/shared"
)

// Service coordinates batch ledger operations for one store at a time.
type Service struct {
	repo    RepositoryPort
	catalog catalog.Lookup
	now     func() time.Time
}

// NewService builds Service. The clock is injectable for tests.
func NewService(repo RepositoryPort, lookup catalog.Lookup) *Service {
	return &Service{repo: repo, catalog: lookup, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateBatch registers a new batch after checking the catalog and input ranges.
func (s *Service) CreateBatch(ctx context.Context, storeID int64, input CreateBatchInput) (Batch, error) {
	if input.BatchNumber == "" {
		return Batch{}, fmt.Errorf("%w: batch number is required", ErrInvalidInput)
	}
	if input.Price < 0 {
		return Batch{}, fmt.Errorf("%w: price must be >= 0", ErrInvalidInput)
	}
	if input.StockQuantity < 0 {
		return Batch{}, fmt.Errorf("%w: stock quantity must be >= 0", ErrInvalidInput)
	}
	if input.ExpiryDate.IsZero() {
		return Batch{}, fmt.Errorf("%w: expiry date is required", ErrInvalidInput)
	}

	if _, err := s.catalog.Product(ctx, input.ProductID); err != nil {
		return Batch{}, err
	}

	minAlert := DefaultMinStockAlert
	if input.MinStockAlert != nil {
		if *input.MinStockAlert < 0 {
			return Batch{}, fmt.Errorf("%w: min stock alert must be >= 0", ErrInvalidInput)
		}
		minAlert = *input.MinStockAlert
	}

	batch := Batch{
		ID:            uuid.New(),
		StoreID:       storeID,
		ProductID:     input.ProductID,
		BatchNumber:   input.BatchNumber,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		ExpiryDate:    input.ExpiryDate,
		MinStockAlert: minAlert,
	}
	batch.Refresh(s.now())

	return s.repo.Create(ctx, batch)
}

// GetBatch fetches one batch owned by the store, with availability recomputed.
func (s *Service) GetBatch(ctx context.Context, storeID int64, batchID uuid.UUID) (Batch, error) {
	batch, err := s.repo.Get(ctx, storeID, batchID)
	if err != nil {
		return Batch{}, err
	}
	batch.Refresh(s.now())
	return batch, nil
}

// UpdateBatch applies a partial update and recomputes availability before
// persisting. An explicit IsAvailable in the input is overridden by the
// derived value; the flag is never authoritative.
func (s *Service) UpdateBatch(ctx context.Context, storeID int64, batchID uuid.UUID, input UpdateBatchInput) (Batch, error) {
	batch, err := s.repo.Get(ctx, storeID, batchID)
	if err != nil {
		return Batch{}, err
	}

	if input.Price != nil {
		if *input.Price < 0 {
			return Batch{}, fmt.Errorf("%w: price must be >= 0", ErrInvalidInput)
		}
		batch.Price = *input.Price
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return Batch{}, fmt.Errorf("%w: stock quantity must be >= 0", ErrInvalidInput)
		}
		batch.StockQuantity = *input.StockQuantity
	}
	if input.ExpiryDate != nil {
		if input.ExpiryDate.IsZero() {
			return Batch{}, fmt.Errorf("%w: expiry date is required", ErrInvalidInput)
		}
		batch.ExpiryDate = *input.ExpiryDate
	}
	if input.MinStockAlert != nil {
		if *input.MinStockAlert < 0 {
			return Batch{}, fmt.Errorf("%w: min stock alert must be >= 0", ErrInvalidInput)
		}
		batch.MinStockAlert = *input.MinStockAlert
	}
	if input.IsAvailable != nil {
		batch.IsAvailable = *input.IsAvailable
	}
	batch.Refresh(s.now())

	return s.repo.Update(ctx, batch)
}

// DeleteBatch removes one batch owned by the store.
func (s *Service) DeleteBatch(ctx context.Context, storeID int64, batchID uuid.UUID) error {
	return s.repo.Delete(ctx, storeID, batchID)
}

// ListBatches returns a page of the store's batches joined with the catalog.
func (s *Service) ListBatches(ctx context.Context, storeID int64, filter ListFilter, page, pageSize int) ([]BatchView, shared.Pagination, error) {
	pagination := shared.NewPagination(page, pageSize, 0)
	views, total, err := s.repo.List(ctx, storeID, filter, pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return views, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// Stats computes the store's current inventory snapshot.
func (s *Service) Stats(ctx context.Context, storeID int64) (Stats, error) {
	return s.repo.Stats(ctx, storeID, s.now())
}

// DecrementStock debits a batch atomically; stock never goes negative.
func (s *Service) DecrementStock(ctx context.Context, storeID int64, batchID uuid.UUID, quantity int) (Batch, error) {
	if quantity < 1 {
		return Batch{}, fmt.Errorf("%w: quantity must be >= 1", ErrInvalidInput)
	}
	return s.repo.DecrementStock(ctx, storeID, batchID, quantity)
}

// ScanAlerts aggregates low-stock and expiry alerts across all stores.
func (s *Service) ScanAlerts(ctx context.Context) ([]StoreAlertSummary, error) {
	return s.repo.ScanAlerts(ctx, s.now())
}
