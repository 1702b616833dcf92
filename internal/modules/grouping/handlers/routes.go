package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all grouping routes
func (h *GroupingHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/trades/group", h.HandleGroupTrades)
}
