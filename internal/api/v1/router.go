package v1

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter assembles the API v1 routes.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Route("/hotspot", func(r chi.Router) {
			r.Get("/", h.GetHotspot)
			r.Post("/start", h.StartHotspot)
			r.Post("/stop", h.StopHotspot)
			r.Get("/clients", h.GetClients)
		})
		r.Route("/policy", func(r chi.Router) {
			r.Get("/", h.GetPolicy)
			r.Post("/block", h.Block)
			r.Post("/unblock", h.Unblock)
			r.Post("/qos", h.QoS)
			r.Post("/priority", h.Priority)
			r.Post("/reset", h.ResetPolicy)
		})
		r.Route("/system", func(r chi.Router) {
			r.Get("/interfaces", h.ListInterfaces)
			r.Get("/logs", h.GetLogs)
			r.Route("/config", func(r chi.Router) {
				r.Post("/save", h.SaveConfig)
			})
		})
	})
	return r
}
