package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/serving"
)

// maxPredictBody caps a /predict request body
const maxPredictBody = 1 << 20

// PredictHandler handles the prediction endpoint
// ⭐ SSOT: /predict 에러 → HTTP 상태 매핑은 여기서만
type PredictHandler struct {
	svc *serving.Service
	log zerolog.Logger
}

// NewPredictHandler creates a new prediction handler
func NewPredictHandler(svc *serving.Service, log zerolog.Logger) *PredictHandler {
	return &PredictHandler{
		svc: svc,
		log: log.With().Str("component", "api.predict").Logger(),
	}
}

// Predict scores one order
// POST /predict
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req contracts.PredictionRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBody))
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr):
			respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error: "invalid field " + typeErr.Field + ": expected " + typeErr.Type.String(),
				Field: typeErr.Field,
			})
		case errors.As(err, &maxErr):
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			respondError(w, http.StatusBadRequest, "request body is empty")
		default:
			respondError(w, http.StatusBadRequest, "malformed JSON: "+err.Error())
		}
		return
	}

	resp, err := h.svc.Predict(r.Context(), req)
	if err != nil {
		var sme *contracts.SchemaMismatchError
		switch {
		case errors.As(err, &sme):
			respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: sme.Error(), Field: sme.Field})
		case errors.Is(err, contracts.ErrModelNotLoaded):
			respondError(w, http.StatusServiceUnavailable, "model not loaded")
		default:
			h.log.Error().Err(err).Msg("prediction failed")
			respondError(w, http.StatusInternalServerError, "prediction failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
