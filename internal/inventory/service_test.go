package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmanet/pharmanet/internal/catalog"
)

type fakeCatalog struct {
	products map[int64]catalog.Product
}

func (f *fakeCatalog) Product(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

type memoryRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]Batch
	lookup  *fakeCatalog
}

func newMemoryRepo(lookup *fakeCatalog) *memoryRepo {
	return &memoryRepo{batches: make(map[uuid.UUID]Batch), lookup: lookup}
}

func (r *memoryRepo) Create(ctx context.Context, batch Batch) (Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.batches {
		if existing.StoreID == batch.StoreID && existing.ProductID == batch.ProductID &&
			existing.BatchNumber == batch.BatchNumber {
			return Batch{}, ErrDuplicateBatch
		}
	}
	batch.CreatedAt = time.Now().UTC()
	batch.UpdatedAt = batch.CreatedAt
	r.batches[batch.ID] = batch
	return batch, nil
}

func (r *memoryRepo) Get(ctx context.Context, storeID int64, batchID uuid.UUID) (Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[batchID]
	if !ok || batch.StoreID != storeID {
		return Batch{}, ErrBatchNotFound
	}
	return batch, nil
}

func (r *memoryRepo) Update(ctx context.Context, batch Batch) (Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.batches[batch.ID]
	if !ok || existing.StoreID != batch.StoreID {
		return Batch{}, ErrBatchNotFound
	}
	batch.UpdatedAt = time.Now().UTC()
	r.batches[batch.ID] = batch
	return batch, nil
}

func (r *memoryRepo) Delete(ctx context.Context, storeID int64, batchID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[batchID]
	if !ok || batch.StoreID != storeID {
		return ErrBatchNotFound
	}
	delete(r.batches, batchID)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, storeID int64, filter ListFilter, limit, offset int) ([]BatchView, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var views []BatchView
	for _, b := range r.batches {
		if b.StoreID != storeID {
			continue
		}
		p := r.lookup.products[b.ProductID]
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(p.Name), needle) &&
				!strings.Contains(strings.ToLower(p.Brand), needle) &&
				!strings.Contains(strings.ToLower(p.GenericName), needle) {
				continue
			}
		}
		views = append(views, BatchView{
			Batch:          b,
			Product:        p,
			IsExpired:      b.IsExpired(now),
			IsLowStock:     b.IsLowStock(),
			IsExpiringSoon: b.IsExpiringSoon(now),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Product.Name < views[j].Product.Name })
	total := len(views)
	if offset > len(views) {
		offset = len(views)
	}
	end := offset + limit
	if end > len(views) {
		end = len(views)
	}
	return views[offset:end], total, nil
}

func (r *memoryRepo) Stats(ctx context.Context, storeID int64, now time.Time) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Stats
	products := map[int64]struct{}{}
	for _, b := range r.batches {
		if b.StoreID != storeID {
			continue
		}
		products[b.ProductID] = struct{}{}
		if b.IsExpired(now) {
			s.Expired++
			continue
		}
		if b.StockQuantity == 0 {
			s.OutOfStock++
		}
		if b.IsLowStock() {
			s.LowStock++
		}
		if b.IsExpiringSoon(now) {
			s.ExpiringSoon++
		}
	}
	s.TotalUniqueProducts = len(products)
	return s, nil
}

func (r *memoryRepo) DecrementStock(ctx context.Context, storeID int64, batchID uuid.UUID, quantity int) (Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[batchID]
	if !ok || batch.StoreID != storeID {
		return Batch{}, ErrBatchNotFound
	}
	if batch.StockQuantity < quantity {
		return Batch{}, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, quantity, batch.StockQuantity)
	}
	batch.StockQuantity -= quantity
	batch.Refresh(time.Now().UTC())
	batch.UpdatedAt = time.Now().UTC()
	r.batches[batchID] = batch
	return batch, nil
}

func (r *memoryRepo) ScanAlerts(ctx context.Context, now time.Time) ([]StoreAlertSummary, error) {
	return nil, nil
}

func newTestService() (*Service, *memoryRepo) {
	lookup := &fakeCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Paracetamol 500mg", Brand: "Calpol", GenericName: "paracetamol", Category: "analgesic"},
		2: {ID: 2, Name: "Amoxicillin 250mg", Brand: "Amoxil", GenericName: "amoxicillin", Category: "antibiotic"},
	}}
	repo := newMemoryRepo(lookup)
	return NewService(repo, lookup), repo
}

func TestCreateBatchValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	expiry := time.Now().UTC().Add(90 * 24 * time.Hour)

	_, err := svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: -1, StockQuantity: 5, ExpiryDate: expiry})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 10, StockQuantity: -5, ExpiryDate: expiry})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 10, StockQuantity: 5})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 99, BatchNumber: "B1", Price: 10, StockQuantity: 5, ExpiryDate: expiry})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)

	batch, err := svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 10, StockQuantity: 5, ExpiryDate: expiry})
	require.NoError(t, err)
	require.Equal(t, DefaultMinStockAlert, batch.MinStockAlert)
	require.True(t, batch.IsAvailable)
}

func TestCreateBatchDuplicateKey(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	expiry := time.Now().UTC().Add(30 * 24 * time.Hour)

	_, err := svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 10, StockQuantity: 5, ExpiryDate: expiry})
	require.NoError(t, err)

	_, err = svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 12, StockQuantity: 2, ExpiryDate: expiry})
	require.ErrorIs(t, err, ErrDuplicateBatch)

	// Same batch number at another store is fine.
	_, err = svc.CreateBatch(ctx, 2, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 9, StockQuantity: 3, ExpiryDate: expiry})
	require.NoError(t, err)
}

func TestUpdateBatchRecomputesAvailability(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	expiry := time.Now().UTC().Add(60 * 24 * time.Hour)

	batch, err := svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 10, StockQuantity: 5, ExpiryDate: expiry})
	require.NoError(t, err)

	zero := 0
	updated, err := svc.UpdateBatch(ctx, 1, batch.ID, UpdateBatchInput{StockQuantity: &zero})
	require.NoError(t, err)
	require.False(t, updated.IsAvailable)

	ten := 10
	forcedTrue := true
	past := time.Now().UTC().Add(-24 * time.Hour)
	updated, err = svc.UpdateBatch(ctx, 1, batch.ID, UpdateBatchInput{StockQuantity: &ten, ExpiryDate: &past, IsAvailable: &forcedTrue})
	require.NoError(t, err)
	// Derived availability wins over the explicit flag.
	require.False(t, updated.IsAvailable)
}

func TestUpdateBatchOwnershipCheck(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	expiry := time.Now().UTC().Add(60 * 24 * time.Hour)

	batch, err := svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 10, StockQuantity: 5, ExpiryDate: expiry})
	require.NoError(t, err)

	price := 11.0
	_, err = svc.UpdateBatch(ctx, 2, batch.ID, UpdateBatchInput{Price: &price})
	require.ErrorIs(t, err, ErrBatchNotFound)

	err = svc.DeleteBatch(ctx, 2, batch.ID)
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestDecrementStockNeverNegative(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	expiry := time.Now().UTC().Add(60 * 24 * time.Hour)

	batch, err := svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 10, StockQuantity: 2, ExpiryDate: expiry})
	require.NoError(t, err)

	_, err = svc.DecrementStock(ctx, 1, batch.ID, 10)
	require.ErrorIs(t, err, ErrInsufficientStock)

	after, err := svc.GetBatch(ctx, 1, batch.ID)
	require.NoError(t, err)
	require.Equal(t, 2, after.StockQuantity)

	debited, err := svc.DecrementStock(ctx, 1, batch.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 0, debited.StockQuantity)
	require.False(t, debited.IsAvailable)

	_, err = svc.DecrementStock(ctx, 1, batch.ID, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestListBatchesFiltersAndSorts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	expiry := time.Now().UTC().Add(60 * 24 * time.Hour)

	_, err := svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "B1", Price: 10, StockQuantity: 5, ExpiryDate: expiry})
	require.NoError(t, err)
	_, err = svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 2, BatchNumber: "B2", Price: 20, StockQuantity: 8, ExpiryDate: expiry})
	require.NoError(t, err)

	views, pagination, err := svc.ListBatches(ctx, 1, ListFilter{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, 2, pagination.Total)
	require.Equal(t, "Amoxicillin 250mg", views[0].Product.Name)

	views, _, err = svc.ListBatches(ctx, 1, ListFilter{Search: "paraceta"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, int64(1), views[0].ProductID)

	again, _, err := svc.ListBatches(ctx, 1, ListFilter{Search: "paraceta"}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, views, again)
}

func TestStatsSnapshot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "FRESH", Price: 10, StockQuantity: 50, ExpiryDate: now.Add(90 * 24 * time.Hour)})
	require.NoError(t, err)
	_, err = svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "EXPIRED", Price: 10, StockQuantity: 4, ExpiryDate: now.Add(-24 * time.Hour)})
	require.NoError(t, err)
	_, err = svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 2, BatchNumber: "SOON", Price: 5, StockQuantity: 0, ExpiryDate: now.Add(10 * 24 * time.Hour)})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalUniqueProducts)
	require.Equal(t, 1, stats.OutOfStock)
	require.Equal(t, 1, stats.LowStock)
	require.Equal(t, 1, stats.Expired)
	require.Equal(t, 1, stats.ExpiringSoon)
}

func TestStatsExpiredBatchesCountOnlyAsExpired(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	now := time.Now().UTC()

	// Under the alert threshold and expired: expired wins.
	_, err := svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 1, BatchNumber: "OLD-LOW", Price: 10, StockQuantity: 4, ExpiryDate: now.Add(-24 * time.Hour)})
	require.NoError(t, err)
	// Out of stock and expired: same.
	_, err = svc.CreateBatch(ctx, 1, CreateBatchInput{ProductID: 2, BatchNumber: "OLD-EMPTY", Price: 5, StockQuantity: 0, ExpiryDate: now.Add(-48 * time.Hour)})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Expired)
	require.Zero(t, stats.LowStock)
	require.Zero(t, stats.OutOfStock)
	require.Zero(t, stats.ExpiringSoon)
}

func TestDerivedFlags(t *testing.T) {
	now := time.Now().UTC()
	b := Batch{StockQuantity: 3, MinStockAlert: 10, ExpiryDate: now.Add(15 * 24 * time.Hour)}

	require.False(t, b.IsExpired(now))
	require.True(t, b.IsLowStock())
	require.True(t, b.IsExpiringSoon(now))
	require.True(t, b.Available(now))

	b.ExpiryDate = now.Add(-time.Hour)
	require.True(t, b.IsExpired(now))
	require.False(t, b.IsExpiringSoon(now))
	require.False(t, b.Available(now))

	b.ExpiryDate = now.Add(45 * 24 * time.Hour)
	require.False(t, b.IsExpiringSoon(now))
}
