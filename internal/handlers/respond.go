package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"vectoria/internal/contextutil"
	"vectoria/internal/storage"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// writeStoreError maps store errors to appropriate HTTP status codes and responses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(r.Context())

	switch {
	case errors.Is(err, storage.ErrInvalid):
		logger.WarnContext(r.Context(), "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		logger.WarnContext(r.Context(), "not found", "error", err)
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrConflict):
		logger.WarnContext(r.Context(), "conflict", "error", err)
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrDegraded):
		logger.WarnContext(r.Context(), "degraded result", "error", err)
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), defaultMsg, "error", err)
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}
