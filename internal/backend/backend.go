// Package backend opens the identity and record backend selected by
// configuration: the hosted project or the self-hosted Postgres schema.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venue_backend/internal/supabase"
	"venue_backend/internal/venueusers/ports"
	"venue_backend/internal/venueusers/repository"
	"venue_backend/platform/config"
	"venue_backend/platform/db"
	"venue_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config combines what each backend needs.
type Config interface {
	config.BackendConfig
	config.DatabaseConfig
}

// Pinger reports whether the backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend holds the ports of the selected backend.
type Backend struct {
	Identities ports.IdentityAdmin
	Records    ports.RecordStore
	// Health is nil for the hosted backend.
	Health Pinger

	close func()
}

// Options tune Open.
type Options struct {
	// Migrate applies pending schema migrations on the postgres backend.
	Migrate bool
}

// Open builds the backend named by cfg.GetBackend.
func Open(ctx context.Context, cfg Config, log *logger.Logger, opts Options) (*Backend, error) {
	switch cfg.GetBackend() {
	case config.BackendSupabase:
		client, err := supabase.NewClient(supabase.Config{
			URL:            cfg.GetServiceURL(),
			ServiceRoleKey: cfg.GetServiceRoleKey(),
		})
		if err != nil {
			return nil, err
		}
		log.Info("using hosted backend", "url", cfg.GetServiceURL())
		return &Backend{
			Identities: supabase.NewIdentityAdmin(client),
			Records:    supabase.NewRecordStore(client),
			close:      func() {},
		}, nil

	case config.BackendPostgres:
		return openPostgres(ctx, cfg, log, opts)

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.GetBackend())
	}
}

func openPostgres(ctx context.Context, cfg Config, log *logger.Logger, opts Options) (*Backend, error) {
	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")

	if opts.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("database migrations complete")
	}

	repo := repository.New(pool)
	return &Backend{
		Identities: repo,
		Records:    repo,
		Health:     db.NewPoolAdapter(pool),
		close:      pool.Close,
	}, nil
}

// Close releases connections held by the backend.
func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
