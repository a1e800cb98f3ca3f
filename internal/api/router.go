package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/mediaslayer/internal/api/handler"
	mw "github.com/iconidentify/mediaslayer/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	formHandler *handler.FormHandler,
	eventHandler *handler.EventHandler,
	healthHandler *handler.HealthHandler,
	uiHandler *handler.UIHandler,
	submitLimiter *mw.RateLimiter,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.Recovery)
	r.Use(mw.CORS)

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Web UI
	r.Get("/", uiHandler.Index)

	r.Route("/api/v1", func(r chi.Router) {
		// SSE streams stay open, so only the plain JSON routes get a timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/stats", healthHandler.Stats)
			r.Get("/themes", formHandler.Themes)
			r.Get("/detect", formHandler.Detect)

			r.Post("/forms", formHandler.Create)
			r.Get("/forms/{formID}", formHandler.Get)
			r.Patch("/forms/{formID}", formHandler.Update)
			r.Delete("/forms/{formID}", formHandler.Delete)
			r.With(submitLimiter.Middleware).Post("/forms/{formID}/submit", formHandler.Submit)

			r.Get("/events", eventHandler.List)
			r.Get("/events/recent", eventHandler.Recent)
			r.Get("/events/stats", eventHandler.Stats)
			r.Get("/events/categories", eventHandler.Categories)
			r.Get("/events/severities", eventHandler.Severities)
		})

		r.Get("/forms/{formID}/stream", formHandler.Stream)
		r.Get("/events/stream", eventHandler.Stream)
	})

	return r
}
