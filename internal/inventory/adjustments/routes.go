package adjustments

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/adjustments/number", h.GenerateNumber)
	r.Get("/adjustments", h.List)
	r.Post("/adjustments", h.CreateManual)
	r.Get("/adjustments/{id}", h.Get)
	r.Post("/adjustments/{id}/post", h.Post)
	r.Post("/adjustments/{id}/cancel", h.Cancel)
	r.Post("/counts", h.CreateCount)
	r.Post("/counts/import", h.ImportCount)
}
