package search

import (
	"log/slog"
	"net/http"

	"github.com/pharmanet/pharmanet/internal/platform/httpx"
	"github.com/pharmanet/pharmanet/internal/shared"
)

// Handler serves the public search endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the search handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	page, limit := shared.PageFromQuery(r, defaultPageSize, maxPageSize)

	query := Query{
		Text:              params.Get("q"),
		Category:          params.Get("category"),
		IncludeOutOfStock: params.Get("includeOutOfStock") == "true",
		SortBy:            params.Get("sortBy"),
		SortOrder:         params.Get("order"),
		Page:              page,
		PerPage:           limit,
	}

	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("search failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
