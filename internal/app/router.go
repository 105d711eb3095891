package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pharmanet/pharmanet/internal/auth"
	"github.com/pharmanet/pharmanet/internal/billing"
	"github.com/pharmanet/pharmanet/internal/inventory"
	"github.com/pharmanet/pharmanet/internal/observability"
	"github.com/pharmanet/pharmanet/internal/search"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Auth             *auth.Middleware
	InventoryHandler *inventory.Handler
	BillingHandler   *billing.Handler
	SearchHandler    *search.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with PharmaNet defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.SearchHandler != nil {
			r.Get("/search", params.SearchHandler.Search)
		}

		r.Group(func(r chi.Router) {
			r.Use(params.Auth.RequireStore)
			if params.InventoryHandler != nil {
				params.InventoryHandler.MountRoutes(r)
			}
			if params.BillingHandler != nil {
				params.BillingHandler.MountRoutes(r)
			}
		})
	})

	return r
}
