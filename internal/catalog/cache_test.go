package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	product Product
	err     error
	calls   int
}

func (s *stubLookup) Product(ctx context.Context, id int64) (Product, error) {
	s.calls++
	if s.err != nil {
		return Product{}, s.err
	}
	return s.product, nil
}

func TestCachedLookupServesFromRedisOnRepeat(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	stub := &stubLookup{product: Product{ID: 7, Name: "Paracetamol", Category: "analgesic"}}
	lookup := NewCachedLookup(stub, client, time.Minute)
	ctx := context.Background()

	first, err := lookup.Product(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "Paracetamol", first.Name)
	require.Equal(t, 1, stub.calls)

	second, err := lookup.Product(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, stub.calls)
}

func TestCachedLookupDoesNotCacheMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	stub := &stubLookup{err: ErrProductNotFound}
	lookup := NewCachedLookup(stub, client, time.Minute)
	ctx := context.Background()

	_, err := lookup.Product(ctx, 11)
	require.ErrorIs(t, err, ErrProductNotFound)
	_, err = lookup.Product(ctx, 11)
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Equal(t, 2, stub.calls)
}

func TestCachedLookupNilClientPassesThrough(t *testing.T) {
	stub := &stubLookup{product: Product{ID: 1, Name: "Ibuprofen"}}
	lookup := NewCachedLookup(stub, nil, time.Minute)

	p, err := lookup.Product(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Ibuprofen", p.Name)
}
