package main

import (
	"net/http"

	"github.com/applypass/applypass-api/internal/api"
	apiMiddleware "github.com/applypass/applypass-api/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	workerAuthMiddleware := apiMiddleware.NewWorkerAuthMiddleware(app.workerAuth)

	taskHandler := api.NewTaskHandler(app.queueService)
	workerHandler := api.NewWorkerHandler(app.queueService)

	r.Route("/api", func(r chi.Router) {
		// User-facing endpoints (JWT)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/tasks", taskHandler.CreateTask)
			r.Get("/tasks", taskHandler.ListTasks)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Post("/tasks/{id}/cancel", taskHandler.CancelTask)
		})

		// Worker protocol endpoints (shared secret)
		r.Route("/worker", func(r chi.Router) {
			r.Use(workerAuthMiddleware.Authenticate)
			r.Post("/claim-next", workerHandler.ClaimNext)
			r.Post("/tasks/{id}/heartbeat", workerHandler.Heartbeat)
			r.Post("/tasks/{id}/complete", workerHandler.Complete)
			r.Post("/tasks/{id}/fail", workerHandler.Fail)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
