package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, batch Batch) (Batch, error)
	Get(ctx context.Context, storeID int64, batchID uuid.UUID) (Batch, error)
	Update(ctx context.Context, batch Batch) (Batch, error)
	Delete(ctx context.Context, storeID int64, batchID uuid.UUID) error
	List(ctx context.Context, storeID int64, filter ListFilter, limit, offset int) ([]BatchView, int, error)
	Stats(ctx context.Context, storeID int64, now time.Time) (Stats, error)
	DecrementStock(ctx context.Context, storeID int64, batchID uuid.UUID, quantity int) (Batch, error)
	ScanAlerts(ctx context.Context, now time.Time) ([]StoreAlertSummary, error)
}

// Repository persists batches in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

const batchColumns = `id, store_id, product_id, batch_number, price, stock_quantity,
	expiry_date, min_stock_alert, is_available, created_at, updated_at`

func scanBatch(row pgx.Row) (Batch, error) {
	var b Batch
	err := row.Scan(
		&b.ID, &b.StoreID, &b.ProductID, &b.BatchNumber, &b.Price, &b.StockQuantity,
		&b.ExpiryDate, &b.MinStockAlert, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// Create inserts a new batch row.
func (r *Repository) Create(ctx context.Context, batch Batch) (Batch, error) {
	const query = `
		INSERT INTO batches (id, store_id, product_id, batch_number, price, stock_quantity,
			expiry_date, min_stock_alert, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + batchColumns

	created, err := scanBatch(r.pool.QueryRow(ctx, query,
		batch.ID, batch.StoreID, batch.ProductID, batch.BatchNumber, batch.Price,
		batch.StockQuantity, batch.ExpiryDate, batch.MinStockAlert, batch.IsAvailable,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Batch{}, ErrDuplicateBatch
		}
		return Batch{}, fmt.Errorf("inventory: create batch: %w", err)
	}
	return created, nil
}

// Get fetches one batch owned by the store.
func (r *Repository) Get(ctx context.Context, storeID int64, batchID uuid.UUID) (Batch, error) {
	const query = `SELECT ` + batchColumns + ` FROM batches WHERE id = $1 AND store_id = $2`

	batch, err := scanBatch(r.pool.QueryRow(ctx, query, batchID, storeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, ErrBatchNotFound
		}
		return Batch{}, fmt.Errorf("inventory: get batch: %w", err)
	}
	return batch, nil
}

// Update persists mutable batch fields; the batch number never changes.
func (r *Repository) Update(ctx context.Context, batch Batch) (Batch, error) {
	const query = `
		UPDATE batches
		SET price = $3, stock_quantity = $4, expiry_date = $5, min_stock_alert = $6,
			is_available = $7, updated_at = NOW()
		WHERE id = $1 AND store_id = $2
		RETURNING ` + batchColumns

	updated, err := scanBatch(r.pool.QueryRow(ctx, query,
		batch.ID, batch.StoreID, batch.Price, batch.StockQuantity, batch.ExpiryDate,
		batch.MinStockAlert, batch.IsAvailable,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, ErrBatchNotFound
		}
		return Batch{}, fmt.Errorf("inventory: update batch: %w", err)
	}
	return updated, nil
}

// Delete removes one batch owned by the store.
func (r *Repository) Delete(ctx context.Context, storeID int64, batchID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM batches WHERE id = $1 AND store_id = $2`, batchID, storeID)
	if err != nil {
		return fmt.Errorf("inventory: delete batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// List returns batches for one store joined with catalog products.
func (r *Repository) List(ctx context.Context, storeID int64, filter ListFilter, limit, offset int) ([]BatchView, int, error) {
	conditions := []string{"b.store_id = $1"}
	args := []interface{}{storeID}
	argPos := 2

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("p.category = $%d", argPos))
		args = append(args, filter.Category)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.brand ILIKE $%d OR p.generic_name ILIKE $%d)",
			argPos, argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM batches b
		JOIN products p ON p.id = b.product_id
		%s`, whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count batches: %w", err)
	}

	orderClause := orderBy(filter)
	query := fmt.Sprintf(`
		SELECT b.id, b.store_id, b.product_id, b.batch_number, b.price, b.stock_quantity,
			b.expiry_date, b.min_stock_alert, b.is_available, b.created_at, b.updated_at,
			p.id, p.name, p.brand, p.generic_name, p.category, p.prescription_required
		FROM batches b
		JOIN products p ON p.id = b.product_id
		%s
		%s
		LIMIT $%d OFFSET $%d`, whereClause, orderClause, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: list batches: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	var views []BatchView
	for rows.Next() {
		var v BatchView
		if err := rows.Scan(
			&v.ID, &v.StoreID, &v.ProductID, &v.BatchNumber, &v.Price, &v.StockQuantity,
			&v.ExpiryDate, &v.MinStockAlert, &v.IsAvailable, &v.CreatedAt, &v.UpdatedAt,
			&v.Product.ID, &v.Product.Name, &v.Product.Brand, &v.Product.GenericName,
			&v.Product.Category, &v.Product.PrescriptionRequired,
		); err != nil {
			return nil, 0, fmt.Errorf("inventory: scan batch row: %w", err)
		}
		v.IsAvailable = v.Available(now)
		v.IsExpired = v.Batch.IsExpired(now)
		v.IsLowStock = v.Batch.IsLowStock()
		v.IsExpiringSoon = v.Batch.IsExpiringSoon(now)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("inventory: list batches: %w", err)
	}
	return views, total, nil
}

func orderBy(filter ListFilter) string {
	column := "p.name"
	switch filter.SortBy {
	case "price":
		column = "b.price"
	case "stockQuantity":
		column = "b.stock_quantity"
	case "expiryDate":
		column = "b.expiry_date"
	case "createdAt":
		column = "b.created_at"
	case "", "name":
	}
	direction := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, p.name ASC", column, direction)
}

// Stats computes a point-in-time snapshot over the store's batches. Expired
// batches count only toward expired; they are excluded from the
// availability-dependent counts.
func (r *Repository) Stats(ctx context.Context, storeID int64, now time.Time) (Stats, error) {
	const query = `
		SELECT
			COUNT(DISTINCT product_id),
			COUNT(*) FILTER (WHERE stock_quantity = 0 AND expiry_date >= $2),
			COUNT(*) FILTER (WHERE stock_quantity <= min_stock_alert AND expiry_date >= $2),
			COUNT(*) FILTER (WHERE expiry_date < $2),
			COUNT(*) FILTER (WHERE expiry_date >= $2 AND expiry_date <= $3)
		FROM batches
		WHERE store_id = $1`

	var s Stats
	err := r.pool.QueryRow(ctx, query, storeID, now, now.Add(ExpiringSoonWindow)).Scan(
		&s.TotalUniqueProducts, &s.OutOfStock, &s.LowStock, &s.Expired, &s.ExpiringSoon,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("inventory: stats: %w", err)
	}
	return s, nil
}

// DecrementStock debits a batch with a single conditional update so that
// concurrent sales can never drive the quantity negative.
func (r *Repository) DecrementStock(ctx context.Context, storeID int64, batchID uuid.UUID, quantity int) (Batch, error) {
	return DecrementStockTx(ctx, r.pool, storeID, batchID, quantity)
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DecrementStockTx runs the conditional debit against the pool or an open
// transaction. Billing uses it to debit batches inside the sale transaction.
func DecrementStockTx(ctx context.Context, q DBTX, storeID int64, batchID uuid.UUID, quantity int) (Batch, error) {
	const query = `
		UPDATE batches
		SET stock_quantity = stock_quantity - $3,
			is_available = (stock_quantity - $3) > 0 AND expiry_date > NOW(),
			updated_at = NOW()
		WHERE id = $1 AND store_id = $2 AND stock_quantity >= $3
		RETURNING ` + batchColumns

	batch, err := scanBatch(q.QueryRow(ctx, query, batchID, storeID, quantity))
	if err == nil {
		return batch, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, fmt.Errorf("inventory: decrement stock: %w", err)
	}

	// Zero rows: either the batch is missing or the guard rejected the debit.
	var available int
	err = q.QueryRow(ctx,
		`SELECT stock_quantity FROM batches WHERE id = $1 AND store_id = $2`,
		batchID, storeID,
	).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, ErrBatchNotFound
	}
	if err != nil {
		return Batch{}, fmt.Errorf("inventory: decrement stock: %w", err)
	}
	return Batch{}, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, quantity, available)
}

// ScanAlerts aggregates alert counts across all stores for the background scan.
func (r *Repository) ScanAlerts(ctx context.Context, now time.Time) ([]StoreAlertSummary, error) {
	const query = `
		SELECT s.id, s.name,
			COUNT(*) FILTER (WHERE b.stock_quantity <= b.min_stock_alert),
			COUNT(*) FILTER (WHERE b.expiry_date >= $1 AND b.expiry_date <= $2),
			COUNT(*) FILTER (WHERE b.expiry_date < $1)
		FROM stores s
		JOIN batches b ON b.store_id = s.id
		GROUP BY s.id, s.name
		ORDER BY s.id`

	rows, err := r.pool.Query(ctx, query, now, now.Add(ExpiringSoonWindow))
	if err != nil {
		return nil, fmt.Errorf("inventory: scan alerts: %w", err)
	}
	defer rows.Close()

	var summaries []StoreAlertSummary
	for rows.Next() {
		var sum StoreAlertSummary
		if err := rows.Scan(&sum.StoreID, &sum.StoreName, &sum.LowStock, &sum.ExpiringSoon, &sum.Expired); err != nil {
			return nil, fmt.Errorf("inventory: scan alerts row: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: scan alerts: %w", err)
	}
	return summaries, nil
}
