package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the application error taxonomy onto HTTP statuses. Infra
// details are logged but never leaked to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	message := err.Error()
	switch kind {
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.Infra:
		status = http.StatusServiceUnavailable
		message = "service temporarily unavailable"
	}

	if status >= 500 {
		logger.Error("request failed", "kind", kind.String(), "err", err)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
