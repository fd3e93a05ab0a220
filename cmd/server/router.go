package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/skillforge-api/internal/api"
	apiMiddleware "github.com/phrazzld/skillforge-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	jobHandler := api.NewGenerationJobHandler(app.orchestrator, app.status, app.logger)
	contentHandler := api.NewContentHandler(app.status, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/generation-jobs", jobHandler.CreateJob)
		r.Get("/generation-jobs", jobHandler.ListJobs)
		r.Get("/generation-jobs/{jobId}", jobHandler.GetJob)

		r.Post("/courses/regenerate", contentHandler.RegenerateCourse)
		r.Get("/content/{contentId}", contentHandler.GetContent)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
