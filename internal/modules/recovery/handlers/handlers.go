// Package handlers provides HTTP handlers for orphan recovery.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/auth"
	"github.com/aristath/journal/internal/modules/recovery"
)

// RecoveryHandlers contains HTTP handlers for the recovery API
type RecoveryHandlers struct {
	service *recovery.Service
	log     zerolog.Logger
}

// NewRecoveryHandlers creates a new recovery handlers instance
func NewRecoveryHandlers(service *recovery.Service, log zerolog.Logger) *RecoveryHandlers {
	return &RecoveryHandlers{
		service: service,
		log:     log.With().Str("handler", "recovery").Logger(),
	}
}

// HandleRecoverOrphans rebuilds missing trades from the event log.
// The user is taken from the bearer token, never from the body.
// POST /api/trades/recover-orphans
func (h *RecoveryHandlers) HandleRecoverOrphans(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.service.Recover(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Orphan recovery failed")
		h.writeError(w, http.StatusInternalServerError, "Orphan recovery failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"recovered": result.Recovered,
		"skipped":   result.Skipped,
		"trades":    result.Tickets,
		"message":   fmt.Sprintf("Recovered %d orphaned trades", result.Recovered),
	})
}

// writeJSON writes a JSON response
func (h *RecoveryHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *RecoveryHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
