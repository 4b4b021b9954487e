// Package api exposes the generation pipeline over HTTP.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/sprout/internal/api/handlers"
)

// maxBodyBytes bounds request bodies; generation requests are small.
const maxBodyBytes = 1 << 20

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(store handlers.Store, gen handlers.Generator, db handlers.Pinger, historyWindow int) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)
	r.Use(LimitBody(maxBodyBytes))

	r.Get("/healthz", handlers.Health(db))

	r.Route("/api", func(api chi.Router) {
		api.Post("/generate", handlers.Generate(gen))

		api.Get("/posts", handlers.ListPosts(store))
		api.Get("/posts/{id}", handlers.GetPost(store))

		api.Get("/history", handlers.GetHistory(store, historyWindow))

		api.Get("/title-bank", handlers.GetTitleBank(store))
		api.Post("/title-bank", handlers.AddTitleBank(store))
	})

	return r
}
