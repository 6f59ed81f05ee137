package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"venue_backend/internal/backend"
	"venue_backend/internal/orphans"
	"venue_backend/platform/config"
	"venue_backend/platform/logger"
)

func main() {
	deleteOrphans := flag.Bool("delete", false, "delete listed identities and drop them from the registry")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client, err := orphans.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to orphan registry", "error", err)
		os.Exit(1)
	}
	defer client.Close()
	registry := orphans.NewRegistry(client)

	list, err := registry.List(ctx)
	if err != nil {
		log.Error("failed to list orphans", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tEMAIL\tVENUE\tSTAGE\tRECORDED\tREASON")
	for _, o := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", o.IdentityID, o.Email, o.VenueID, o.Stage, o.RecordedAt.Format(time.RFC3339), o.Reason)
	}
	_ = w.Flush()

	if !*deleteOrphans || len(list) == 0 {
		return
	}

	store, err := backend.Open(ctx, cfg, log, backend.Options{})
	if err != nil {
		log.Error("failed to open backend", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	result, err := orphans.Cleanup(ctx, registry, store.Identities, log)
	log.Info("orphan cleanup finished", "deleted", len(result.Deleted), "failed", len(result.Failed))
	if err != nil {
		log.Error("orphan cleanup incomplete", "error", err)
		os.Exit(1)
	}
}
