package httpx

import (
	"errors"
	"net/http"
)

// ErrUnauthorized rejects requests without valid store credentials. Domain
// packages map their own errors next to their handlers; this sentinel is the
// one error raised across package boundaries by the auth middleware and the
// store-scoped handlers.
var ErrUnauthorized = errors.New("unauthorized")

// RespondError writes the RFC7807 response for cross-package errors.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
