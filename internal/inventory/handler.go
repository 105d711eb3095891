package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pharmanet/pharmanet/internal/catalog"
	"github.com/pharmanet/pharmanet/internal/platform/httpx"
	"github.com/pharmanet/pharmanet/internal/shared"
)

// Handler wires HTTP endpoints for the batch ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes on a store-authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/stats", h.handleStats)
		r.Get("/{batchID}", h.handleGet)
		r.Patch("/{batchID}", h.handleUpdate)
		r.Delete("/{batchID}", h.handleDelete)
	})
}

type createBatchRequest struct {
	ProductID     int64     `json:"productId" validate:"required"`
	BatchNumber   string    `json:"batchNumber" validate:"required"`
	Price         float64   `json:"price" validate:"gte=0"`
	StockQuantity int       `json:"stockQuantity" validate:"gte=0"`
	ExpiryDate    time.Time `json:"expiryDate" validate:"required"`
	MinStockAlert *int      `json:"minStockAlert" validate:"omitempty,gte=0"`
}

type updateBatchRequest struct {
	BatchNumber   *string    `json:"batchNumber"`
	Price         *float64   `json:"price" validate:"omitempty,gte=0"`
	StockQuantity *int       `json:"stockQuantity" validate:"omitempty,gte=0"`
	ExpiryDate    *time.Time `json:"expiryDate"`
	MinStockAlert *int       `json:"minStockAlert" validate:"omitempty,gte=0"`
	IsAvailable   *bool      `json:"isAvailable"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	store, ok := shared.StoreFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req createBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	batch, err := h.service.CreateBatch(r.Context(), store.ID, CreateBatchInput{
		ProductID:     req.ProductID,
		BatchNumber:   req.BatchNumber,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ExpiryDate:    req.ExpiryDate,
		MinStockAlert: req.MinStockAlert,
	})
	if err != nil {
		h.logger.Warn("create batch failed",
			slog.Int64("store_id", store.ID),
			slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, batch)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	store, ok := shared.StoreFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := ListFilter{
		Category:  q.Get("category"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("order"),
	}
	page, limit := shared.PageFromQuery(r, 20, 100)

	views, pagination, err := h.service.ListBatches(r.Context(), store.ID, filter, page, limit)
	if err != nil {
		h.logger.Error("list batches failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	if views == nil {
		views = []BatchView{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"batches":    views,
		"pagination": pagination,
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	store, ok := shared.StoreFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	stats, err := h.service.Stats(r.Context(), store.ID)
	if err != nil {
		h.logger.Error("inventory stats failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	store, ok := shared.StoreFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}

	batch, err := h.service.GetBatch(r.Context(), store.ID, batchID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	store, ok := shared.StoreFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}

	var req updateBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if req.BatchNumber != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "batch number is immutable")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	batch, err := h.service.UpdateBatch(r.Context(), store.ID, batchID, UpdateBatchInput{
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ExpiryDate:    req.ExpiryDate,
		MinStockAlert: req.MinStockAlert,
		IsAvailable:   req.IsAvailable,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	store, ok := shared.StoreFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}

	if err := h.service.DeleteBatch(r.Context(), store.ID, batchID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBatchNotFound), errors.Is(err, catalog.ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateBatch):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusBadRequest, "Insufficient Stock", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
