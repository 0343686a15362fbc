package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	handler "github.com/propstead/propstead/internal/adapter/http"
	otelx "github.com/propstead/propstead/internal/adapter/otel"
	riverx "github.com/propstead/propstead/internal/adapter/river"

	"github.com/propstead/propstead/internal/adapter/fsm"
	"github.com/propstead/propstead/internal/adapter/sqlite"
	"github.com/propstead/propstead/internal/app"
	"github.com/propstead/propstead/internal/domain"
	"github.com/propstead/propstead/internal/sideeffect"
)

type config struct {
	Port              string        `env:"PORT" envDefault:"8080"`
	DatabasePath      string        `env:"DATABASE_PATH" envDefault:"propstead.db"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SideEffectTimeout time.Duration `env:"SIDE_EFFECT_TIMEOUT" envDefault:"30s"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := env.ParseAs[config]()
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	// --- Observability ---
	providers, err := otelx.Setup(ctx, otelx.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Persistence ---
	db, err := otelx.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	events := sqlite.NewEventStore(db)
	tasks := sqlite.NewTaskStore(db)
	docs := sqlite.NewDocumentStore(db)

	// --- Job queue ---
	riverClient, sweepHandle, err := riverx.Setup(ctx, db, cfg.SweepInterval)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	// --- Application ---
	rules := domain.DefaultRules()
	notifier := riverx.NewNotifier(riverClient)

	svc := app.NewLifecycleService(
		otelx.NewTracingRepository(repo),
		events,
		otelx.NewTracingPublisher(riverx.NewPublisher(riverClient)),
		fsm.New(rules),
		tasks,
		app.Config{
			Rules:             rules,
			Guards:            domain.DefaultGuards(),
			SLA:               domain.DefaultSLAPolicy(),
			Effects:           sideeffect.DefaultRegistry(tasks, docs, notifier),
			SideEffectTimeout: cfg.SideEffectTimeout,
		},
	)
	sweepHandle.Set(svc)

	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware("propstead", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("propstead", "0.1.0"))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("propstead listening", "port", cfg.Port)
		slog.Info("API docs", "url", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("river shutdown", "error", err)
	}

	slog.Info("stopped")
	return nil
}
