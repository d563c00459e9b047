package costlayer

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.Stock)
	r.Get("/valuation", h.Valuation)
}
