// Package handlers provides HTTP handlers for trade grouping.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/modules/grouping"
)

// GroupingHandlers contains HTTP handlers for the grouping API
type GroupingHandlers struct {
	service *grouping.Service
	log     zerolog.Logger
}

// NewGroupingHandlers creates a new grouping handlers instance
func NewGroupingHandlers(service *grouping.Service, log zerolog.Logger) *GroupingHandlers {
	return &GroupingHandlers{
		service: service,
		log:     log.With().Str("handler", "grouping").Logger(),
	}
}

// HandleGroupTrades runs a grouping pass
// POST /api/trades/group
func (h *GroupingHandlers) HandleGroupTrades(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string `json:"user_id"`
		TradeID       *int64 `json:"trade_id,omitempty"`
		WindowSeconds *int64 `json:"window_seconds,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	window := time.Duration(0)
	if req.WindowSeconds != nil {
		window = time.Duration(*req.WindowSeconds) * time.Second
	}

	result, err := h.service.Run(req.UserID, req.TradeID, window)
	if err != nil {
		if errors.Is(err, grouping.ErrTradeNotFound) {
			h.writeError(w, http.StatusNotFound, "Trade not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Grouping run failed")
		h.writeError(w, http.StatusInternalServerError, "Grouping run failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "success",
		"groups_created": result.GroupsCreated,
		"trades_grouped": result.TradesGrouped,
	})
}

// writeJSON writes a JSON response
func (h *GroupingHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *GroupingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
