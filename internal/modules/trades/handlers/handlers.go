// Package handlers provides HTTP handlers for reading trades.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/auth"
	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/trades"
)

// TradeHandlers contains HTTP handlers for the trades read API
type TradeHandlers struct {
	tradeRepo *trades.TradeRepository
	log       zerolog.Logger
}

// NewTradeHandlers creates a new trade handlers instance
func NewTradeHandlers(tradeRepo *trades.TradeRepository, log zerolog.Logger) *TradeHandlers {
	return &TradeHandlers{
		tradeRepo: tradeRepo,
		log:       log.With().Str("handler", "trades").Logger(),
	}
}

// HandleListTrades returns the caller's trades, most recent first
// GET /api/trades
func (h *TradeHandlers) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := 50
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var accountID *int64
	if accountParam := r.URL.Query().Get("account_id"); accountParam != "" {
		parsed, err := strconv.ParseInt(accountParam, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid account_id")
			return
		}
		accountID = &parsed
	}

	list, err := h.tradeRepo.List(userID, accountID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list trades")
		h.writeError(w, http.StatusInternalServerError, "Failed to list trades")
		return
	}

	response := make([]map[string]interface{}, 0, len(list))
	for i := range list {
		response = append(response, tradeToResponse(&list[i]))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": response,
		"count":  len(response),
	})
}

func tradeToResponse(t *domain.Trade) map[string]interface{} {
	resp := map[string]interface{}{
		"id":                t.ID,
		"account_id":        t.AccountID,
		"ticket":            t.Ticket,
		"symbol":            t.Symbol,
		"direction":         string(t.Direction),
		"total_lots":        t.TotalLots,
		"original_lots":     t.OriginalLots,
		"entry_price":       t.EntryPrice,
		"entry_time":        t.EntryTime.Format(time.RFC3339),
		"exit_price":        t.ExitPrice,
		"sl_initial":        t.SLInitial,
		"tp_initial":        t.TPInitial,
		"gross_pnl":         t.GrossPnl,
		"commission":        t.Commission,
		"swap":              t.Swap,
		"net_pnl":           t.NetPnl,
		"r_multiple_actual": t.RMultipleActual,
		"duration_seconds":  t.DurationSeconds,
		"session":           string(t.Session),
		"is_open":           t.IsOpen,
		"trade_group_id":    t.TradeGroupID,
		"playbook_id":       t.PlaybookID,
		"is_archived":       t.IsArchived,
	}

	if t.ExitTime != nil {
		resp["exit_time"] = t.ExitTime.Format(time.RFC3339)
	} else {
		resp["exit_time"] = nil
	}

	return resp
}

// writeJSON writes a JSON response
func (h *TradeHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *TradeHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
