package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venue_backend/internal/backend"
	"venue_backend/internal/events"
	apphttp "venue_backend/internal/http"
	"venue_backend/internal/http/router"
	"venue_backend/internal/orphans"
	"venue_backend/internal/venueusers"
	"venue_backend/platform/config"
	"venue_backend/platform/logger"
	"venue_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "backend", cfg.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	store, err := backend.Open(ctx, cfg, log, backend.Options{Migrate: cfg.IsPostgresBackend()})
	if err != nil {
		log.Error("failed to open backend", "error", err)
		panic("failed to open backend: " + err.Error())
	}
	defer store.Close()

	eventBus := events.NewInMemoryBus(log)
	closeOrphans := initOrphanRegistry(ctx, cfg, eventBus, log)
	defer closeOrphans()

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	venueUsersModule := venueusers.NewModule(store.Identities, store.Records, val, eventBus, log)
	venueUsersModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Modules: []apphttp.Module{venueUsersModule},
	}
	if store.Health != nil {
		app.Health = store.Health
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		eventBus.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// initOrphanRegistry records orphaned identities in Redis when REDIS_URL is set.
func initOrphanRegistry(ctx context.Context, cfg config.RedisConfig, bus events.Bus, log *logger.Logger) func() {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; orphaned identities are only logged")
		return func() {}
	}

	client, err := orphans.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize orphan registry", "error", err)
		return func() {}
	}

	orphans.RegisterHandlers(bus, orphans.NewRegistry(client), log)
	log.Info("orphan registry enabled", "key", orphans.RegistryKey)
	return func() {
		_ = client.Close()
	}
}
