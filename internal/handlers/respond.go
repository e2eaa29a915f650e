// Package handlers exposes the capture core over a small JSON HTTP API
// for field clients.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mesure/fieldcap/internal/capture"
	"mesure/fieldcap/internal/db"
	"mesure/fieldcap/internal/scan"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the capture error taxonomy onto HTTP statuses. Every
// failure is a transient JSON message; the session stays usable.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, scan.ErrMalformedPayload):
		status = http.StatusBadRequest
	case errors.Is(err, capture.ErrNotCalibrated):
		status = http.StatusConflict
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}
