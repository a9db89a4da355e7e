/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (httplog, ECS schema, JSON)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the kiosk and admin frontends
  5. Heartbeat:  GET /health for load balancers

ROUTE GROUPS:
  /api/holidays/*       Holiday calendar and overrides
  /api/settings/*       Current state
  /api/staff/*          Staff, rate cards, clock-in/out, shift history
  /api/pay/*            Pay quotes
  /api/admin/*          Auto-close sweep

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewLogger creates the JSON request logger. Field names follow ECS.
// An unrecognised level falls back to info.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "roster-engine"),
		slog.String("env", env),
	)
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/health"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Get("/check", h.CheckHoliday)
			r.Get("/upcoming", h.UpcomingHolidays)
			r.Get("/overrides", h.GetOverrides)
			r.Put("/overrides", h.PutOverrides)
			r.Delete("/overrides", h.DeleteOverrides)
			r.Put("/overrides/rename", h.RenameHoliday)
		})

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/state", h.GetStateSetting)
			r.Put("/state", h.PutStateSetting)
		})

		// Staff routes
		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.CreateStaff)
			r.Get("/{id}", h.GetStaff)
			r.Get("/{id}/rates", h.GetRates)
			r.Put("/{id}/rates", h.SaveRates)
			r.Post("/{id}/clock-in", h.ClockIn)
			r.Post("/{id}/clock-out", h.ClockOut)
			r.Get("/{id}/shift", h.GetActiveShift)
			r.Get("/{id}/shifts", h.ListShifts)
		})

		// Pay routes
		r.Route("/pay", func(r chi.Router) {
			r.Post("/quote", h.QuotePay)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/auto-close", h.TriggerAutoClose)
			r.Get("/auto-close/runs", h.ListAutoCloseRuns)
		})
	})

	return r
}
