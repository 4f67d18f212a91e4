/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the HR frontend

ROUTE GROUPS:
  /api/employees/*        Employees, their records and ledgers
  /api/imports/*          Punch ingestion
  /api/leave-declarations Leave over date ranges
  /api/admin/*            Monthly reset and backfill triggers

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", h.GetEmployee)
				r.Get("/ledger", h.GetLedger)
				r.Get("/late-allowance", h.GetLateAllowance)
				r.Get("/records", h.ListRecords)
				r.Put("/records/{date}", h.PutRecord)
				r.Delete("/records/{date}", h.DeleteRecord)
			})
		})

		r.Post("/imports/punches", h.ImportPunches)
		r.Post("/leave-declarations", h.DeclareLeave)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/monthly-reset", h.TriggerMonthlyReset)
			r.Post("/backfill", h.TriggerBackfill)
		})
	})

	return r
}
