package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all pattern routes. The router passed in
// must already require bearer authentication.
func (h *PatternHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/patterns/analyze", h.HandleAnalyzePatterns)
}
