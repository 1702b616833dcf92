package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all feature routes
func (h *FeatureHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/features/compute", h.HandleComputeFeatures)
}
