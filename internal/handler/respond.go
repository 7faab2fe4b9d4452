package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/thorsby/docketwatch/internal/domain"
)

// maxRequestBodyBytes caps JSON request bodies. The largest legitimate
// body is a registration payload; anything near this limit is abuse.
const maxRequestBodyBytes = 1 << 20 // 1 MiB

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; all that is left is to record it.
		logger.Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads a JSON request body into dst. The body is capped at
// maxRequestBodyBytes and must contain a single JSON value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.Errorf(domain.ETOOLARGE, "", "Request body is too large.")
		}
		return domain.Errorf(domain.EINVALID, "", "Request body must be valid JSON.")
	}
	// A second value after the first is a malformed request, not data.
	if dec.More() {
		return domain.Errorf(domain.EINVALID, "", "Request body must contain a single JSON object.")
	}
	return nil
}

// pageParams reads limit/offset query parameters with bounds applied.
func pageParams(r *http.Request, defaultLimit, maxLimit int32) (limit, offset int32) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil && v > 0 {
			limit = int32(v)
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil && v >= 0 {
			offset = int32(v)
		}
	}
	return limit, offset
}
