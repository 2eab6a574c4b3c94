package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 10 * time.Minute

// SchedulerConfig holds cron specs for the background jobs. An empty spec
// disables the job.
type SchedulerConfig struct {
	RatingReconcileCron string
	HistoryPruneCron    string
	HistoryRetention    time.Duration
}

// SalonCacheFlusher drops every cached salon response
type SalonCacheFlusher interface {
	InvalidateSalonCaches(ctx context.Context) error
}

// Scheduler runs the periodic rating reconcile and history prune jobs
type Scheduler struct {
	cron    *cron.Cron
	ratings *RatingService
	history *HistoryService
	flusher SalonCacheFlusher
	config  SchedulerConfig
}

// NewScheduler registers the configured jobs. It does not start them.
func NewScheduler(ratings *RatingService, history *HistoryService, config SchedulerConfig) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		ratings: ratings,
		history: history,
		config:  config,
	}

	if config.RatingReconcileCron != "" && ratings != nil {
		if _, err := s.cron.AddFunc(config.RatingReconcileCron, s.reconcileRatings); err != nil {
			return nil, fmt.Errorf("invalid rating reconcile schedule %q: %w", config.RatingReconcileCron, err)
		}
	}
	if config.HistoryPruneCron != "" && history != nil && config.HistoryRetention > 0 {
		if _, err := s.cron.AddFunc(config.HistoryPruneCron, s.pruneHistory); err != nil {
			return nil, fmt.Errorf("invalid history prune schedule %q: %w", config.HistoryPruneCron, err)
		}
	}
	return s, nil
}

// WithCacheFlush flushes cached salon responses after every rating
// reconcile. Per-salon events may have been dropped under load.
func (s *Scheduler) WithCacheFlush(flusher SalonCacheFlusher) *Scheduler {
	s.flusher = flusher
	return s
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// ReconcileRatings runs the rating reconcile job once
func (s *Scheduler) ReconcileRatings(ctx context.Context) (*RecalcReport, error) {
	report, err := s.ratings.RecalculateAll(ctx)
	if err != nil {
		return report, err
	}
	if s.flusher != nil {
		if err := s.flusher.InvalidateSalonCaches(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush salon response cache after reconcile")
		}
	}
	return report, nil
}

func (s *Scheduler) reconcileRatings() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.ReconcileRatings(ctx); err != nil {
		log.Error().Err(err).Msg("Rating reconcile failed")
	}
}

func (s *Scheduler) pruneHistory() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := s.history.Prune(ctx, s.config.HistoryRetention)
	if err != nil {
		log.Error().Err(err).Msg("History prune failed")
		return
	}
	log.Info().Int64("removed", removed).Msg("History prune finished")
}
