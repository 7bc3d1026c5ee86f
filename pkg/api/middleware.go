package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/storage"
	"github.com/ssargent/utgallery/pkg/store"
)

const apiKeyHeader = "X-API-Key"

// apiKeyMiddleware validates the X-API-Key header
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(apiKeyHeader)
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	sendStatus(w, data, http.StatusOK)
}

// sendStatus sends a successful JSON response with the given status code
func sendStatus(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// errorStatus maps store and codec errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidName),
		errors.Is(err, store.ErrNotIndexed),
		errors.Is(err, codec.ErrURLContainsNUL),
		errors.Is(err, codec.ErrRecordTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNoGallery),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case codec.IsCorruption(err):
		return http.StatusConflict
	case errors.Is(err, store.ErrGalleryClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
