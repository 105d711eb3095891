package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	var pd ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pd))
	return pd
}

func TestRespondErrorUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("%w: missing bearer token", ErrUnauthorized))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	pd := decodeProblem(t, rec)
	require.Equal(t, "Unauthorized", pd.Title)
	require.Equal(t, http.StatusUnauthorized, pd.Status)
	require.Contains(t, pd.Detail, "missing bearer token")
}

func TestRespondErrorDefaultsToInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("connection reset"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	pd := decodeProblem(t, rec)
	require.Equal(t, "Internal Error", pd.Title)
	require.Empty(t, pd.Detail)
}
