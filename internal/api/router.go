package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(apiHandler *APIHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", apiHandler.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", apiHandler.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", apiHandler.HandleState)
		r.Get("/track", apiHandler.HandleTrack)
		r.Post("/location/request", apiHandler.HandleRequestLocation)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", apiHandler.HandleNotifications)
			r.Post("/{id}/read", apiHandler.HandleMarkRead)
			r.Post("/read-all", apiHandler.HandleMarkAllRead)
			r.Delete("/", apiHandler.HandleClearNotifications)
		})
	})

	return r
}
