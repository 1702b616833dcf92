package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all recovery routes. The router passed in
// must already require bearer authentication.
func (h *RecoveryHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/trades/recover-orphans", h.HandleRecoverOrphans)
}
