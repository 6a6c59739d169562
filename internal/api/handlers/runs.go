package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wonny/delaycast/internal/runs"
)

// RunsHandler serves the training run history
type RunsHandler struct {
	store runs.Store
	log   zerolog.Logger
}

// NewRunsHandler creates a new run history handler
func NewRunsHandler(store runs.Store, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		store: store,
		log:   log.With().Str("component", "api.runs").Logger(),
	}
}

// ListRuns returns the most recent runs
// GET /api/runs?limit=20
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	list, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Int("limit", limit).Msg("failed to list training runs")
		respondError(w, http.StatusInternalServerError, "failed to list training runs")
		return
	}
	if list == nil {
		list = []runs.Run{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  list,
		"count": len(list),
	})
}

// GetRun returns one run
// GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "run id must be a UUID")
		return
	}

	run, err := h.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, runs.ErrNotFound):
		respondError(w, http.StatusNotFound, "training run not found")
	case err != nil:
		h.log.Error().Err(err).Str("run_id", id.String()).Msg("failed to get training run")
		respondError(w, http.StatusInternalServerError, "failed to get training run")
	default:
		respondJSON(w, http.StatusOK, run)
	}
}
