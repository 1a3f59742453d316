package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			// Bearer auth only when an API key is configured
			if h.apiKey != "" {
				r.Use(AuthMiddleware(h.apiKey))
			}

			r.Get("/kb/version", h.KBVersion)
			r.Post("/kb/reload", h.KBReload)

			r.Get("/topics", h.ListTopics)
			r.Get("/topics/{id}", h.GetTopic)

			r.Post("/lessons/generate", h.GenerateLesson)
			r.Get("/lessons/{id}", h.GetLesson)
			r.Get("/lessons/{id}/status", h.LessonStatus)
			r.Get("/lessons/{id}/audit", h.LessonAudit)
		})
	})

	return r
}
