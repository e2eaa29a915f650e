package handlers

import (
	"net/http"
	"strconv"

	"mesure/fieldcap/internal/db"
)

// CatalogHandler serves the stored sites, sessions and points for
// review screens, and their deletes.
type CatalogHandler struct {
	store *db.DB
}

func NewCatalogHandler(store *db.DB) *CatalogHandler {
	return &CatalogHandler{store: store}
}

func (h *CatalogHandler) HandleSites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sites, err := h.store.AllSites(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sites)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
			return
		}
		if err := h.store.DeleteSite(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		methodNotAllowed(w)
	}
}

func (h *CatalogHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var (
			sessions []db.Session
			err      error
		)
		if site := r.URL.Query().Get("site"); site != "" {
			sessions, err = h.store.SessionsForSite(r.Context(), site)
		} else {
			sessions, err = h.store.AllSessions(r.Context())
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessions)

	case http.MethodDelete:
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
			return
		}
		if err := h.store.DeleteSession(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		methodNotAllowed(w)
	}
}

func (h *CatalogHandler) HandlePoints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessionID, err := strconv.ParseInt(r.URL.Query().Get("session"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session is required"})
			return
		}
		points, err := h.store.PointsForSession(r.Context(), sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, points)

	case http.MethodDelete:
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
			return
		}
		if err := h.store.DeletePoint(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		methodNotAllowed(w)
	}
}

// Register wires every API route onto the mux.
func Register(mux *http.ServeMux, capture *CaptureHandler, catalog *CatalogHandler) {
	mux.HandleFunc("/api/scan", capture.HandleScan)
	mux.HandleFunc("/api/calibrate", capture.HandleCalibrate)
	mux.HandleFunc("/api/place", capture.HandlePlace)
	mux.HandleFunc("/api/pose", capture.HandlePose)
	mux.HandleFunc("/api/snapshot", capture.HandleSnapshot)
	mux.HandleFunc("/api/end", capture.HandleEnd)
	mux.HandleFunc("/api/sites", catalog.HandleSites)
	mux.HandleFunc("/api/sessions", catalog.HandleSessions)
	mux.HandleFunc("/api/points", catalog.HandlePoints)
}
