package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/kiss-go/internal/infra/buildinfo"
)

// handleHealth handles GET /health. Liveness is unconditional.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := h.currentState()
	h.writeJSON(w, r, http.StatusOK, ProbeResponse{
		Status: state.String(),
		Ready:  state.Ready(),
	})
}

// handleReady handles GET /ready: 200 only while serving.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	state := h.currentState()
	status := http.StatusServiceUnavailable
	if state.Ready() {
		status = http.StatusOK
	}
	h.writeJSON(w, r, status, ProbeResponse{
		Status: state.String(),
		Ready:  state.Ready(),
	})
}

// handleStatus handles GET /status.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, StatusResponse{
		State:         h.currentState().String(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Build:         buildinfo.Get(),
		Cache:         h.stats,
	})
}
