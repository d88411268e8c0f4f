package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"qiblago/pkg/geo"
	"qiblago/pkg/heading"
	"qiblago/pkg/qibla"
	"qiblago/pkg/session"
)

// QiblaResponse is the rendering client's view of the compass.
// Rotation, Smoothed and Aligned are meaningless while HasTarget is false.
type QiblaResponse struct {
	SessionID string           `json:"session_id"`
	State     heading.State    `json:"state"`
	Status    string           `json:"status"`
	HasTarget bool             `json:"hasTarget"`
	Aligned   bool             `json:"aligned"`
	Heading   float64          `json:"heading"`
	Rotation  float64          `json:"rotation"`
	Smoothed  float64          `json:"smoothed"`
	Relative  float64          `json:"relative"`
	Direction *qibla.Direction `json:"direction,omitempty"`
}

// LocationRequest is the body of POST /api/location.
type LocationRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// QiblaHandler serves the session state and accepts location fixes.
type QiblaHandler struct {
	sess *session.Session
	calc *qibla.Calculator
}

// NewQiblaHandler creates a new QiblaHandler.
func NewQiblaHandler(sess *session.Session, calc *qibla.Calculator) *QiblaHandler {
	return &QiblaHandler{sess: sess, calc: calc}
}

// HandleState handles GET /api/qibla.
func (h *QiblaHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	snap := h.sess.Snapshot()
	resp := QiblaResponse{
		SessionID: snap.ID,
		State:     snap.State,
		Status:    snap.Status,
		HasTarget: snap.Update.HasTarget,
		Aligned:   snap.Update.Aligned,
		Heading:   snap.Update.Heading,
		Rotation:  snap.Update.Rotation,
		Smoothed:  snap.Update.Smoothed,
		Relative:  snap.Update.Relative,
		Direction: snap.Direction,
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleLocation handles POST /api/location.
// Invalid coordinates answer 400 and are never queued.
func (h *QiblaHandler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Lat == nil || req.Lon == nil {
		http.Error(w, "lat and lon are required", http.StatusBadRequest)
		return
	}

	p := geo.Point{Lat: *req.Lat, Lon: *req.Lon}
	dir, err := h.calc.Direction(p)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidCoordinates) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.sess.PushFix(r.Context(), p); err != nil {
		slog.Error("Failed to queue location fix", "error", err)
		http.Error(w, "Session unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, dir)
}

// HandleClearLocation handles DELETE /api/location.
// The compass returns to "unknown" until the next fix.
func (h *QiblaHandler) HandleClearLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.ClearFix(r.Context()); err != nil {
		slog.Error("Failed to queue location reset", "error", err)
		http.Error(w, "Session unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
