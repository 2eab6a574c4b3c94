package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/salonbooking/backend/internal/bootstrap"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
	"github.com/zatekoja/salonbooking/backend/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "drop the salons collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger("salon-indexer", cfg.Environment)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the indexer always talks to Typesense, whatever the API server's setting
	cfg.Typesense.Enabled = true
	core, err := bootstrap.New(ctx, cfg, bootstrap.Options{Search: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backends")
	}
	defer core.Close()

	if core.Index == nil {
		log.Error().Msg("Typesense is unavailable; nothing to index into")
		return
	}

	for {
		if err := indexOnce(ctx, core, reset || os.Getenv("RESET_TYPESENSE") == "true"); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			return
		}
		reset = false
		log.Info().Dur("next_run_in", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, core *bootstrap.Core, reset bool) error {
	if reset {
		log.Info().Msg("Dropping salons collection")
		if err := core.Index.DropSchema(ctx); err != nil {
			return err
		}
		if err := core.Index.InitSchema(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	indexed, err := core.SalonService.Reindex(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	log.Info().Int("salons", indexed).Dur("took", time.Since(start)).Msg("Indexed salons")
	return nil
}
