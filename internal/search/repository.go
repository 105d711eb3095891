package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort reads the cross-store join. Mutations never happen here.
type RepositoryPort interface {
	Offers(ctx context.Context, query Query) ([]Record, error)
}

// Repository runs the aggregation query against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Offers returns every matching batch across all stores, joined with its
// product and store. Expired and zero-stock batches are filtered out unless
// the query opts in.
func (r *Repository) Offers(ctx context.Context, query Query) ([]Record, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT p.id, p.name, p.brand, p.generic_name, p.category, p.prescription_required,
			s.id, s.name, s.contact, s.address,
			b.id, b.batch_number, b.price, b.stock_quantity, b.expiry_date
		FROM batches b
		JOIN products p ON p.id = b.product_id
		JOIN stores s ON s.id = b.store_id`)

	var conditions []string
	var args []any
	if !query.IncludeOutOfStock {
		conditions = append(conditions, "b.stock_quantity > 0 AND b.expiry_date > NOW()")
	}
	if query.Text != "" {
		args = append(args, "%"+query.Text+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.brand ILIKE $%d OR p.generic_name ILIKE $%d)", n, n, n))
	}
	if query.Category != "" {
		args = append(args, query.Category)
		conditions = append(conditions, fmt.Sprintf("p.category ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		sb.WriteString("\n\t\tWHERE " + strings.Join(conditions, " AND "))
	}
	sb.WriteString("\n\t\tORDER BY p.id, s.id")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search: query offers: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ProductID, &rec.Name, &rec.Brand, &rec.GenericName, &rec.Category,
			&rec.PrescriptionRequired,
			&rec.Offer.StoreID, &rec.Offer.StoreName, &rec.Offer.Contact, &rec.Offer.Address,
			&rec.Offer.BatchID, &rec.Offer.BatchNumber, &rec.Offer.Price,
			&rec.Offer.StockQuantity, &rec.Offer.ExpiryDate,
		); err != nil {
			return nil, fmt.Errorf("search: scan offer: %w", err)
		}
		rec.Offer.IsAvailable = rec.Offer.StockQuantity > 0 && rec.Offer.ExpiryDate.After(now)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: query offers: %w", err)
	}
	return records, nil
}
