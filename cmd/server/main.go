/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the roster engine server: holiday calendar, shift
  pay API and the auto-close scheduler. Handles configuration, dependency
  injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Load the holiday configuration (HOLIDAY_CONFIG or embedded defaults)
  3. Initialize SQLite store and apply persisted holiday overrides
  4. Create API handler, router and auto-close scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port      HTTP server port (APP_PORT, default: 8080)
  -db        SQLite database path (DB_PATH, default: roster.db)
             Use ":memory:" for in-memory database
  -holidays  Holiday config file, YAML or JSON (HOLIDAY_CONFIG)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the auto-close scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/roster.db"
  ./server -db=":memory:" -port=3000
  AUTO_CLOSE_RATE_MODE=day_type ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - factory/holidays.go: Holiday configuration loading
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/roster-engine/api"
	"github.com/warp/roster-engine/config"
	"github.com/warp/roster-engine/factory"
	"github.com/warp/roster-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags
	port := flag.Int("port", cfg.App.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	holidayPath := flag.String("holidays", cfg.Holidays.ConfigPath, "Holiday config file (YAML or JSON)")
	flag.Parse()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Holiday calendar
	holidayCfg, err := loadHolidays(*holidayPath)
	if err != nil {
		log.Fatalf("Failed to load holiday configuration: %v", err)
	}
	if cfg.Holidays.DefaultState != "" {
		holidayCfg.DefaultState = cfg.Holidays.DefaultState
	}
	calc, err := holidayCfg.Calculator(cfg.Holidays.CacheSize)
	if err != nil {
		log.Fatalf("Failed to build holiday calendar: %v", err)
	}
	if !calc.KnownState(calc.DefaultState()) {
		log.Printf("Warning: default state %q has no holiday rules", calc.DefaultState())
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, calc, loc, cfg.AutoClosePolicy())

	// Persisted overrides win over the configured ones
	if err := handler.LoadOverrides(context.Background()); err != nil {
		log.Fatalf("Failed to load holiday overrides: %v", err)
	}

	// Create router
	router := api.NewRouter(handler, api.NewLogger(os.Stdout, cfg.App.Env, cfg.App.LogLevel))

	// Start auto-close scheduler
	scheduler := api.NewAutoCloseScheduler(handler)
	scheduler.CheckInterval = cfg.AutoClose.Interval
	scheduler.Enabled = cfg.AutoClose.Enabled
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d (state %s, zone %s)", *port, calc.DefaultState(), loc)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func loadHolidays(path string) (*factory.HolidayConfig, error) {
	f := factory.NewHolidayFactory()
	if path == "" {
		return f.Default()
	}
	return f.LoadFile(path)
}
