// Package auth authenticates store-scoped requests with per-store API keys.
package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pharmanet/pharmanet/internal/platform/httpx"
	"github.com/pharmanet/pharmanet/internal/shared"
	"github.com/pharmanet/pharmanet/internal/stores"
)

// Middleware resolves "caller is store S" from a bearer credential of the
// form <storeID>.<key> and puts the store identity on the request context.
type Middleware struct {
	logger *slog.Logger
	stores stores.Lookup
}

// NewMiddleware constructs Middleware.
func NewMiddleware(logger *slog.Logger, lookup stores.Lookup) *Middleware {
	return &Middleware{logger: logger, stores: lookup}
}

// RequireStore rejects the request with 401 unless the API key checks out.
func (m *Middleware) RequireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		storeID, key, ok := parseBearer(r.Header.Get("Authorization"))
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}

		store, hash, err := m.stores.Credentials(r.Context(), storeID)
		if err != nil {
			// Store lookup failures and unknown ids look identical to the
			// caller; the distinction stays in the logs.
			if m.logger != nil {
				m.logger.Warn("store credential lookup failed",
					slog.Int64("store_id", storeID),
					slog.Any("error", err))
			}
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}

		ctx := shared.ContextWithStore(r.Context(), shared.StoreIdentity{ID: store.ID, Name: store.Name})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseBearer(header string) (int64, string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return 0, "", false
	}
	idPart, key, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || key == "" {
		return 0, "", false
	}
	storeID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || storeID < 1 {
		return 0, "", false
	}
	return storeID, key, true
}
