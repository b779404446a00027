package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-match/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	matchHandler := handlers.NewMatchHandler(s.deps.Single, s.deps.Results)
	bulkHandler := handlers.NewBulkHandler(s.deps.Bulk, s.deps.Jobs)
	galleryHandler := handlers.NewGalleryHandler(s.deps.Gallery, s.deps.Provider, s.config.Embedding.Dim)
	resultsHandler := handlers.NewResultsHandler(s.deps.Results)
	configHandler := handlers.NewConfigHandler(s.config)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Single-image recognition
		r.Post("/match", matchHandler.Match)

		// Bulk recognition (long-running operations)
		r.Post("/bulk", bulkHandler.Submit)
		r.Get("/bulk/{jobId}", bulkHandler.Status)
		r.Get("/bulk/{jobId}/events", bulkHandler.Events)
		r.Delete("/bulk/{jobId}", bulkHandler.Cancel)

		// Gallery management
		r.Get("/gallery", galleryHandler.List)
		r.Post("/gallery/{identityId}", galleryHandler.Register)
		r.Delete("/gallery/{identityId}", galleryHandler.Remove)

		// Persisted results
		r.Get("/results/{namespace}/*", resultsHandler.Get)

		// Config
		r.Get("/config", configHandler.Get)
	})
}
