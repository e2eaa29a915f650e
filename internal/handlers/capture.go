package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"mesure/fieldcap/internal/capture"
	"mesure/fieldcap/internal/db"
	"mesure/fieldcap/internal/geo"
)

// CaptureHandler serves the live capture flow: scan, calibrate, place,
// pose and end.
type CaptureHandler struct {
	hub *capture.Hub
}

func NewCaptureHandler(hub *capture.Hub) *CaptureHandler {
	return &CaptureHandler{hub: hub}
}

// ScanRequest carries the raw text read from a site marker.
type ScanRequest struct {
	Payload string `json:"payload"`
}

type scanResponse struct {
	capture.ScanResult
	WorkflowID string `json:"workflow_id"`
}

func (h *CaptureHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	res, wf, err := h.hub.Resolve(r.Context(), req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scanResponse{ScanResult: res, WorkflowID: wf.ID})
}

// CalibrateRequest sets the session origin from a marker hit or, with
// Force, from the raw camera pose.
type CalibrateRequest struct {
	SessionID int64          `json:"session_id"`
	Position  geo.Vector3    `json:"position"`
	Rotation  geo.Quaternion `json:"rotation"`
	Force     bool           `json:"force"`
}

func (h *CaptureHandler) HandleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req CalibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	wf := h.hub.Get(req.SessionID)
	if wf == nil {
		writeError(w, fmt.Errorf("no active workflow for session %d: %w", req.SessionID, db.ErrNotFound))
		return
	}

	var err error
	if req.Force {
		err = wf.ForceCalibrate(r.Context(), capture.PoseSample{Position: req.Position, Rotation: req.Rotation})
	} else {
		err = wf.Calibrate(r.Context(), req.Position, req.Rotation)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wf.Snapshot())
}

// PlaceRequest chains a new point at a world position.
type PlaceRequest struct {
	SessionID int64       `json:"session_id"`
	Position  geo.Vector3 `json:"position"`
}

func (h *CaptureHandler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	wf := h.hub.Get(req.SessionID)
	if wf == nil {
		writeError(w, fmt.Errorf("no active workflow for session %d: %w", req.SessionID, db.ErrNotFound))
		return
	}

	point, err := wf.PlacePoint(r.Context(), req.Position)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, point)
}

// PoseRequest feeds one camera pose sample for HUD updates.
type PoseRequest struct {
	SessionID int64                 `json:"session_id"`
	Position  geo.Vector3           `json:"position"`
	Rotation  geo.Quaternion        `json:"rotation"`
	Tracking  capture.TrackingState `json:"tracking"`
}

func (h *CaptureHandler) HandlePose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req PoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	wf := h.hub.Get(req.SessionID)
	if wf == nil {
		writeError(w, fmt.Errorf("no active workflow for session %d: %w", req.SessionID, db.ErrNotFound))
		return
	}

	if req.Tracking == "" {
		req.Tracking = capture.TrackingNormal
	}
	wf.ObservePose(capture.PoseSample{Position: req.Position, Rotation: req.Rotation, Tracking: req.Tracking})

	writeJSON(w, http.StatusOK, wf.Snapshot())
}

func (h *CaptureHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	sessionID, err := strconv.ParseInt(r.URL.Query().Get("session"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session is required"})
		return
	}

	wf := h.hub.Get(sessionID)
	if wf == nil {
		writeError(w, fmt.Errorf("no active workflow for session %d: %w", sessionID, db.ErrNotFound))
		return
	}

	writeJSON(w, http.StatusOK, wf.Snapshot())
}

// EndRequest finalizes a session.
type EndRequest struct {
	SessionID int64 `json:"session_id"`
}

func (h *CaptureHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req EndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := h.hub.End(r.Context(), req.SessionID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}
