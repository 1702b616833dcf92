package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trade read routes. The router passed in
// must already require bearer authentication.
func (h *TradeHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/trades", h.HandleListTrades)
}
