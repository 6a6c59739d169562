package handlers

import (
	"net/http"

	"github.com/wonny/delaycast/internal/serving"
)

// ModelHandler exposes the active artifact's metadata
type ModelHandler struct {
	svc *serving.Service
}

// NewModelHandler creates a new model handler
func NewModelHandler(svc *serving.Service) *ModelHandler {
	return &ModelHandler{svc: svc}
}

// GetModel returns run id, selected candidate, metrics and feature names
// GET /api/model
func (h *ModelHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	m := h.svc.Model()
	if m == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	respondJSON(w, http.StatusOK, m.Info())
}

// Ready reports 200 once a model is loaded
// GET /ready
func (h *ModelHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ready() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"run_id": h.svc.Model().RunID(),
	})
}
