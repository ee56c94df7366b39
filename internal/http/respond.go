package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	applog "expensed/internal/log"
)

// errorResponse is the JSON error payload. Details carries per-field
// validation messages; it is omitted for single-cause errors.
type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, label string, details []string) {
	writeJSON(w, status, errorResponse{Error: label, Details: details})
}

func writeValidationError(w http.ResponseWriter, details []string) {
	writeError(w, http.StatusBadRequest, "validation_failed", details)
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not_found", nil)
}

// writeInternalError hides storage detail from clients; the cause goes to
// the log only.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Internal error",
		applog.NewFields().WithError(err).ToSlice()...)
	writeError(w, http.StatusInternalServerError, "internal_error", nil)
}
