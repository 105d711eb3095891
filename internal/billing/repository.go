package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmanet/pharmanet/internal/inventory"
	"github.com/pharmanet/pharmanet/internal/platform/db"
)

// TxRepository exposes the operations available inside a sale transaction.
type TxRepository interface {
	GetBatch(ctx context.Context, storeID int64, batchID uuid.UUID) (inventory.Batch, string, error)
	DecrementBatch(ctx context.Context, storeID int64, batchID uuid.UUID, quantity int) error
	InsertSale(ctx context.Context, sale Sale) error
	InsertSaleItems(ctx context.Context, saleID uuid.UUID, items []SaleItem) error
}

// RepositoryPort abstracts persistence for the billing service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, storeID int64, saleID uuid.UUID) (Sale, error)
	ListSales(ctx context.Context, storeID int64, limit, offset int) ([]Sale, int, error)
}

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside one database transaction. The sale
// insert and every batch debit commit or roll back together.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetBatch reads a batch with its product name for the line snapshot.
func (r *txRepo) GetBatch(ctx context.Context, storeID int64, batchID uuid.UUID) (inventory.Batch, string, error) {
	const query = `
		SELECT b.id, b.store_id, b.product_id, b.batch_number, b.price, b.stock_quantity,
			b.expiry_date, b.min_stock_alert, b.is_available, b.created_at, b.updated_at,
			p.name
		FROM batches b
		JOIN products p ON p.id = b.product_id
		WHERE b.id = $1 AND b.store_id = $2`

	var b inventory.Batch
	var productName string
	err := r.tx.QueryRow(ctx, query, batchID, storeID).Scan(
		&b.ID, &b.StoreID, &b.ProductID, &b.BatchNumber, &b.Price, &b.StockQuantity,
		&b.ExpiryDate, &b.MinStockAlert, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt,
		&productName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Batch{}, "", inventory.ErrBatchNotFound
		}
		return inventory.Batch{}, "", fmt.Errorf("billing: get batch: %w", err)
	}
	return b, productName, nil
}

// DecrementBatch debits stock through the shared conditional update.
func (r *txRepo) DecrementBatch(ctx context.Context, storeID int64, batchID uuid.UUID, quantity int) error {
	_, err := inventory.DecrementStockTx(ctx, r.tx, storeID, batchID, quantity)
	return err
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) error {
	const query = `
		INSERT INTO sales (id, store_id, customer_name, customer_phone, payment_method,
			payment_status, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.tx.Exec(ctx, query,
		sale.ID, sale.StoreID, sale.CustomerName, sale.CustomerPhone,
		string(sale.PaymentMethod), string(sale.PaymentStatus), sale.TotalAmount, sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("billing: insert sale: %w", err)
	}
	return nil
}

func (r *txRepo) InsertSaleItems(ctx context.Context, saleID uuid.UUID, items []SaleItem) error {
	const query = `
		INSERT INTO sale_items (sale_id, product_id, batch_id, product_name, batch_number,
			quantity, sold_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, item := range items {
		if _, err := r.tx.Exec(ctx, query,
			saleID, item.ProductID, item.BatchID, item.ProductName, item.BatchNumber,
			item.Quantity, item.SoldPrice,
		); err != nil {
			return fmt.Errorf("billing: insert sale item: %w", err)
		}
	}
	return nil
}

// GetSale fetches one sale with items, scoped to the owning store.
func (r *Repository) GetSale(ctx context.Context, storeID int64, saleID uuid.UUID) (Sale, error) {
	const query = `
		SELECT id, store_id, customer_name, customer_phone, payment_method,
			payment_status, total_amount, created_at
		FROM sales
		WHERE id = $1 AND store_id = $2`

	var sale Sale
	err := r.pool.QueryRow(ctx, query, saleID, storeID).Scan(
		&sale.ID, &sale.StoreID, &sale.CustomerName, &sale.CustomerPhone,
		&sale.PaymentMethod, &sale.PaymentStatus, &sale.TotalAmount, &sale.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrSaleNotFound
		}
		return Sale{}, fmt.Errorf("billing: get sale: %w", err)
	}

	items, err := r.saleItems(ctx, []uuid.UUID{sale.ID})
	if err != nil {
		return Sale{}, err
	}
	sale.Items = items[sale.ID]
	return sale, nil
}

// ListSales returns the store's sales, newest first.
func (r *Repository) ListSales(ctx context.Context, storeID int64, limit, offset int) ([]Sale, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sales WHERE store_id = $1`, storeID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("billing: count sales: %w", err)
	}

	const query = `
		SELECT id, store_id, customer_name, customer_phone, payment_method,
			payment_status, total_amount, created_at
		FROM sales
		WHERE store_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, storeID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("billing: list sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	var ids []uuid.UUID
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(
			&sale.ID, &sale.StoreID, &sale.CustomerName, &sale.CustomerPhone,
			&sale.PaymentMethod, &sale.PaymentStatus, &sale.TotalAmount, &sale.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("billing: scan sale: %w", err)
		}
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("billing: list sales: %w", err)
	}

	items, err := r.saleItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
	}
	return sales, total, nil
}

func (r *Repository) saleItems(ctx context.Context, saleIDs []uuid.UUID) (map[uuid.UUID][]SaleItem, error) {
	if len(saleIDs) == 0 {
		return map[uuid.UUID][]SaleItem{}, nil
	}

	const query = `
		SELECT sale_id, product_id, batch_id, product_name, batch_number, quantity, sold_price
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("billing: load sale items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]SaleItem)
	for rows.Next() {
		var saleID uuid.UUID
		var item SaleItem
		if err := rows.Scan(&saleID, &item.ProductID, &item.BatchID, &item.ProductName,
			&item.BatchNumber, &item.Quantity, &item.SoldPrice); err != nil {
			return nil, fmt.Errorf("billing: scan sale item: %w", err)
		}
		items[saleID] = append(items[saleID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: load sale items: %w", err)
	}
	return items, nil
}
