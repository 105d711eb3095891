package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPaginationComputesPages(t *testing.T) {
	p := NewPagination(2, 20, 45)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 45, p.Total)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 20, p.Offset())

	empty := NewPagination(1, 10, 0)
	require.Zero(t, empty.TotalPages)

	defaulted := NewPagination(0, 0, 5)
	require.Equal(t, 1, defaulted.Page)
	require.Equal(t, 20, defaulted.PerPage)
	require.Zero(t, defaulted.Offset())
}

func TestPageFromQueryBounds(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/inventory?page=3&limit=500", nil)
	page, limit := PageFromQuery(r, 20, 100)
	require.Equal(t, 3, page)
	require.Equal(t, 100, limit)

	r = httptest.NewRequest("GET", "/api/inventory?page=-1&limit=abc", nil)
	page, limit = PageFromQuery(r, 20, 100)
	require.Equal(t, 1, page)
	require.Equal(t, 20, limit)
}
