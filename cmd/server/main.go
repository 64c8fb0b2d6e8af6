/*
main.go - HTTP server entry point

PURPOSE:
  Loads the supplier workbook and the sales CSV once, then serves the
  reconciler over HTTP. Handles configuration, dependency injection, and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Read env configuration (.env, RECON_*), then flags
  2. Load the dataset
  3. Initialize SQLite store
  4. Build the Reconciler with the xlsx exporter as sink
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (override env):
  -port       HTTP server port (PORT, default 8080)
  -db         SQLite database path (RECON_DB_PATH, default reconciler.db)
              Use ":memory:" for in-memory database
  -suppliers  Supplier workbook (RECON_SUPPLIERS_PATH)
  -lines      Sales CSV (RECON_LINES_PATH)
  -out        Report directory (RECON_OUTPUT_DIR, default reports)
  -config     Optional JSON settings (RECON_CONFIG_PATH)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection

EXAMPLES:
  ./server -suppliers=proveedores.xlsx -lines=260.csv -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - cmd/reconcile: Batch entry point over the same Reconciler
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/discount-reconciler/api"
	"github.com/warp/discount-reconciler/config"
	"github.com/warp/discount-reconciler/export"
	"github.com/warp/discount-reconciler/factory"
	"github.com/warp/discount-reconciler/ingest"
	"github.com/warp/discount-reconciler/logging"
	"github.com/warp/discount-reconciler/report"
	"github.com/warp/discount-reconciler/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.SuppliersPath, "suppliers", cfg.SuppliersPath, "supplier workbook (.xlsx)")
	flag.StringVar(&cfg.LinesPath, "lines", cfg.LinesPath, "sales lines (.csv)")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "report output directory")
	flag.StringVar(&cfg.DomainConfig, "config", cfg.DomainConfig, "JSON settings file")
	flag.Parse()

	logging.ConfigureLogger(cfg.LogLevel, nil)
	logger := logging.GetLogger()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ds, err := ingest.Load(cfg.SuppliersPath, cfg.LinesPath, logger)
	if err != nil {
		logger.Fatalf("Failed to load dataset: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	opts, err := factory.NewOptionsFactory().LoadFile(cfg.DomainConfig)
	if err != nil {
		logger.Fatalf("Failed to load settings: %v", err)
	}
	opts.Summary, opts.Runs = store, store
	opts.Sink = export.NewXLSXWriter(cfg.OutputDir, logger)
	opts.Logger = logger

	rec, err := report.New(ds, opts)
	if err != nil {
		logger.Fatalf("Failed to build reconciler: %v", err)
	}

	// Create router
	router := api.NewRouter(api.NewHandler(rec, logger))

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on http://localhost:%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
