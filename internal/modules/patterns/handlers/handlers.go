// Package handlers provides HTTP handlers for pattern analysis.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/auth"
	"github.com/aristath/journal/internal/modules/patterns"
)

// PatternHandlers contains HTTP handlers for the patterns API
type PatternHandlers struct {
	service *patterns.Service
	log     zerolog.Logger
}

// NewPatternHandlers creates a new pattern handlers instance
func NewPatternHandlers(service *patterns.Service, log zerolog.Logger) *PatternHandlers {
	return &PatternHandlers{
		service: service,
		log:     log.With().Str("handler", "patterns").Logger(),
	}
}

// HandleAnalyzePatterns mines the caller's closed trades for patterns.
// The user is taken from the bearer token.
// POST /api/patterns/analyze
func (h *PatternHandlers) HandleAnalyzePatterns(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		AccountID *int64 `json:"account_id,omitempty"`
		MinTrades int    `json:"min_trades,omitempty"`
	}

	// An empty body means defaults
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	analysis, err := h.service.Analyze(userID, req.AccountID, req.MinTrades)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Pattern analysis failed")
		h.writeError(w, http.StatusInternalServerError, "Pattern analysis failed")
		return
	}

	h.writeJSON(w, http.StatusOK, analysis)
}

// writeJSON writes a JSON response
func (h *PatternHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *PatternHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
