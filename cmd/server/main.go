/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the finance API server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), apply flag overrides
  2. Configure slog
  3. Open the document store (SQLite, Postgres or memory)
  4. Connect the AMQP event publisher, if configured
  5. Build services, handler and router
  6. Serve until SIGINT/SIGTERM

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (PORT, default: 5174)
  -db      SQLite database path (DB_PATH, default: finance.db)
  -driver  sqlite | postgres | memory (DB_DRIVER, default: sqlite)

ENVIRONMENT:
  PORT, BASE_PATH, CLIENT_URL, DB_DRIVER, DB_PATH, DATABASE_URL,
  LOG_LEVEL, LOG_FORMAT, AMQP_URL, AMQP_EXCHANGE, SHUTDOWN_TIMEOUT
  See config/config.go for defaults.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (SHUTDOWN_TIMEOUT)
  3. Close the event publisher and the store
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/finance.db"

  # Run without persistence
  ./server -driver=memory

  # Run against Postgres
  DB_DRIVER=postgres DATABASE_URL=postgres://localhost/finance ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/finance-engine/api"
	"github.com/warp/finance-engine/config"
	"github.com/warp/finance-engine/events"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/generic/store"
	"github.com/warp/finance-engine/ledger"
	"github.com/warp/finance-engine/store/postgres"
	"github.com/warp/finance-engine/store/sqlite"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	driver := flag.String("driver", "", "sqlite, postgres or memory (overrides DB_DRIVER)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *driver != "" {
		cfg.DBDriver = *driver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	ds, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer closeStore()
	logger.Info("Initialized document store", "driver", cfg.DBDriver)

	// Event publisher
	var publisher events.Publisher = events.Nop{}
	if cfg.EventsEnabled() {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		defer p.Close()
		publisher = p
		logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange)
	}

	// Initialize handler
	handler := api.NewHandler(ds, logger, ledger.WithPublisher(publisher))
	router := api.NewRouter(handler, api.RouterConfig{
		BasePath:       cfg.BasePath,
		AllowedOrigins: []string{cfg.ClientURL},
		Logger:         logger,
	})

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", "port", cfg.Port, "base_path", cfg.BasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	// Validate has already rejected unknown levels.
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStore returns the configured store and a function that closes it.
func openStore(ctx context.Context, cfg *config.Config) (generic.DocumentStore, func(), error) {
	var (
		ds     generic.DocumentStore
		closer io.Closer
	)
	switch cfg.DBDriver {
	case config.DriverPostgres:
		s, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		ds, closer = s, s
	case config.DriverMemory:
		ds = store.NewMemory()
	default:
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		ds, closer = s, s
	}

	return ds, func() {
		if closer == nil {
			return
		}
		if err := closer.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}, nil
}
