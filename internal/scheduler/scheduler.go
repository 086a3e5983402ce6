// Package scheduler runs the periodic maintenance jobs of the worker: the
// missing reference sweep and request ledger pruning.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/temporal"
)

// defaultJobTimeout bounds a single job run.
const defaultJobTimeout = 5 * time.Minute

// SweepStarter enqueues a missing reference sweep.
type SweepStarter interface {
	StartMissingReferenceSweep(ctx context.Context, input temporal.SweepInput) (workflowID, runID string, err error)
}

// LedgerPruner deletes request ledger entries recorded before cutoff.
type LedgerPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds the job schedules.
type Config struct {
	// SweepSchedule is a cron expression or descriptor such as "@every 6h".
	SweepSchedule string
	SweepLimit    int

	// PruneSchedule is empty to disable ledger pruning.
	PruneSchedule   string
	LedgerRetention time.Duration
}

// Scheduler triggers jobs on their cron schedules. A job still running when
// its next activation comes round is skipped.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	starter SweepStarter
	pruner  LedgerPruner
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a Scheduler. pruner may be nil, which disables pruning.
func New(cfg Config, starter SweepStarter, pruner LedgerPruner, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cfg:     cfg,
		starter: starter,
		pruner:  pruner,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		now:     time.Now,
	}

	cl := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := s.cron.AddFunc(cfg.SweepSchedule, s.runJob("sweep", s.RunSweep)); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	if pruner != nil && cfg.PruneSchedule != "" {
		prune := func(ctx context.Context) error {
			_, err := s.PruneLedger(ctx)
			return err
		}
		if _, err := s.cron.AddFunc(cfg.PruneSchedule, s.runJob("prune", prune)); err != nil {
			return nil, fmt.Errorf("invalid prune schedule %q: %w", cfg.PruneSchedule, err)
		}
	}

	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info().
		Str("sweep_schedule", s.cfg.SweepSchedule).
		Str("prune_schedule", s.cfg.PruneSchedule).
		Msg("scheduler started")
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunSweep enqueues a missing reference sweep.
func (s *Scheduler) RunSweep(ctx context.Context) error {
	workflowID, runID, err := s.starter.StartMissingReferenceSweep(ctx, temporal.SweepInput{Limit: s.cfg.SweepLimit})
	if err != nil {
		return fmt.Errorf("start missing reference sweep: %w", err)
	}
	s.logger.Info().
		Str("workflow_id", workflowID).
		Str("run_id", runID).
		Int("limit", s.cfg.SweepLimit).
		Msg("missing reference sweep started")
	return nil
}

// PruneLedger deletes ledger entries older than the configured retention.
func (s *Scheduler) PruneLedger(ctx context.Context) (int64, error) {
	if s.pruner == nil {
		return 0, nil
	}
	cutoff := s.now().Add(-s.cfg.LedgerRetention)
	deleted, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune request ledger: %w", err)
	}
	s.logger.Info().Time("cutoff", cutoff).Int64("deleted", deleted).Msg("request ledger pruned")
	return deleted, nil
}

func (s *Scheduler) runJob(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultJobTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		}
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
