package periods

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/status", h.IsOpen)
	r.Post("/{id}/close", h.Close)
	r.Post("/{id}/reopen", h.Reopen)
	r.Get("/{id}/events", h.Events)
}
