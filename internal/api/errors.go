package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ainoter/internal/exchange"
	"github.com/kalambet/ainoter/internal/note"
	"github.com/kalambet/ainoter/internal/storage"
	"github.com/kalambet/ainoter/internal/validation"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeError maps domain errors onto HTTP responses. Missing records and
// records of another account both read as "not found or access denied".
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *validation.Error
		ie *note.ImageError
	)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "not found or access denied")
	case errors.As(err, &ve):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", ve.Error())
	case errors.Is(err, exchange.ErrInFlight):
		httpError(w, http.StatusConflict, "conflict", "%s", err.Error())
	case errors.Is(err, exchange.ErrKeyNotConfigured):
		httpError(w, http.StatusPreconditionFailed, "configuration_error", "%s", err.Error())
	case errors.As(err, &ie):
		httpError(w, http.StatusInternalServerError, "io_error", "%s", ie.Error())
	case errors.Is(err, storage.ErrUnavailable):
		slog.Error("storage unavailable", "error", err)
		httpError(w, http.StatusServiceUnavailable, "unavailable", "storage is unavailable, try again")
	default:
		slog.Error("request failed", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid id %q", chi.URLParam(r, "id"))
		return 0, false
	}
	return id, true
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

// page applies limit/offset query parameters to an already ordered list.
func page[T any](r *http.Request, items []T) []T {
	limit := parseIntParam(r, "limit", 50, 200)
	offset := parseIntParam(r, "offset", 0, 0)
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
