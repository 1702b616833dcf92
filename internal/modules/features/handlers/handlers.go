// Package handlers provides HTTP handlers for feature computation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/modules/features"
)

// FeatureHandlers contains HTTP handlers for the features API
type FeatureHandlers struct {
	service *features.Service
	log     zerolog.Logger
}

// NewFeatureHandlers creates a new feature handlers instance
func NewFeatureHandlers(service *features.Service, log zerolog.Logger) *FeatureHandlers {
	return &FeatureHandlers{
		service: service,
		log:     log.With().Str("handler", "features").Logger(),
	}
}

// HandleComputeFeatures recomputes and stores the feature row for a trade
// POST /api/features/compute
func (h *FeatureHandlers) HandleComputeFeatures(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TradeID int64 `json:"trade_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.TradeID <= 0 {
		h.writeError(w, http.StatusBadRequest, "trade_id is required")
		return
	}

	result, err := h.service.Compute(req.TradeID)
	if err != nil {
		if errors.Is(err, features.ErrTradeNotFound) {
			h.writeError(w, http.StatusNotFound, "Trade not found")
			return
		}
		h.log.Error().Err(err).Int64("trade_id", req.TradeID).Msg("Feature computation failed")
		h.writeError(w, http.StatusInternalServerError, "Feature computation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"features": result,
	})
}

// writeJSON writes a JSON response
func (h *FeatureHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *FeatureHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
