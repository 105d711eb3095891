package billing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pharmanet/pharmanet/internal/platform/db"
	"github.com/pharmanet/pharmanet/internal/shared"
)

// saleTxAttempts bounds retries of a sale transaction aborted by a
// serialization failure.
const saleTxAttempts = 3

// Service validates and commits sales against one store's batches.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateSale validates the cart, snapshots line items, and commits the sale
// record together with every batch debit in a single transaction. Either the
// whole sale lands or none of it does; the conditional debit inside the
// transaction guarantees two concurrent sales cannot jointly oversell a batch.
// A transaction aborted by a concurrent update is retried whole, so a
// contended loser reports its real shortfall instead of an internal error.
func (s *Service) CreateSale(ctx context.Context, storeID int64, input CreateSaleInput) (Sale, error) {
	if len(input.Items) == 0 {
		return Sale{}, ErrEmptyCart
	}
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return Sale{}, fmt.Errorf("%w: batch %s", ErrInvalidQuantity, item.BatchID)
		}
	}
	method := input.PaymentMethod
	if method == "" {
		method = PaymentMethodCash
	}
	if !method.Valid() {
		return Sale{}, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, input.PaymentMethod)
	}

	base := Sale{
		ID:            uuid.New(),
		StoreID:       storeID,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		PaymentMethod: method,
		PaymentStatus: PaymentStatusCompleted,
		CreatedAt:     s.now(),
	}

	var sale Sale
	for attempt := 1; ; attempt++ {
		sale = base
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var total float64
			for _, item := range input.Items {
				batch, productName, err := tx.GetBatch(ctx, storeID, item.BatchID)
				if err != nil {
					return err
				}
				// The conditional update is the authoritative guard; debiting
				// before the quantity check would report a less precise shortfall.
				if err := tx.DecrementBatch(ctx, storeID, item.BatchID, item.Quantity); err != nil {
					return err
				}
				sale.Items = append(sale.Items, SaleItem{
					ProductID:   batch.ProductID,
					BatchID:     batch.ID,
					ProductName: productName,
					BatchNumber: batch.BatchNumber,
					Quantity:    item.Quantity,
					SoldPrice:   batch.Price,
				})
				total += batch.Price * float64(item.Quantity)
			}
			sale.TotalAmount = math.Round(total*100) / 100

			if err := tx.InsertSale(ctx, sale); err != nil {
				return err
			}
			return tx.InsertSaleItems(ctx, sale.ID, sale.Items)
		})
		if err == nil {
			break
		}
		if db.IsSerializationFailure(err) && attempt < saleTxAttempts {
			if s.logger != nil {
				s.logger.Warn("sale transaction aborted by concurrent update, retrying",
					slog.String("sale_id", base.ID.String()),
					slog.Int("attempt", attempt))
			}
			continue
		}
		return Sale{}, err
	}

	if s.logger != nil {
		s.logger.Info("sale completed",
			slog.String("sale_id", sale.ID.String()),
			slog.Int64("store_id", storeID),
			slog.Int("items", len(sale.Items)),
			slog.Float64("total", sale.TotalAmount))
	}
	return sale, nil
}

// GetSale fetches one sale owned by the store.
func (s *Service) GetSale(ctx context.Context, storeID int64, saleID uuid.UUID) (Sale, error) {
	return s.repo.GetSale(ctx, storeID, saleID)
}

// ListSales returns a page of the store's sales, newest first.
func (s *Service) ListSales(ctx context.Context, storeID int64, page, pageSize int) ([]Sale, shared.Pagination, error) {
	pagination := shared.NewPagination(page, pageSize, 0)
	sales, total, err := s.repo.ListSales(ctx, storeID, pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}
