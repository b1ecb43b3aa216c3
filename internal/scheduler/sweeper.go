package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper deletes stored files older than a cutoff.
type Sweeper interface {
	Sweep(olderThan time.Duration) (int, error)
}

// RetentionSweeper periodically removes expired uploads.
type RetentionSweeper struct {
	cron      *cron.Cron
	store     Sweeper
	retention time.Duration
	schedule  string
	log       *zap.Logger
}

// NewRetentionSweeper builds a sweeper for the given cron schedule.
func NewRetentionSweeper(store Sweeper, retention time.Duration, schedule string, log *zap.Logger) *RetentionSweeper {
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))))
	return &RetentionSweeper{cron: c, store: store, retention: retention, schedule: schedule, log: log}
}

// Start registers the sweep job and starts the scheduler. A zero retention
// disables sweeping.
func (s *RetentionSweeper) Start() error {
	if s.retention <= 0 {
		s.log.Info("upload retention disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.log.Info("retention sweeper started",
		zap.String("schedule", s.schedule),
		zap.Duration("retention", s.retention),
	)
	return nil
}

// Stop halts the scheduler and returns a context done once running jobs finish.
func (s *RetentionSweeper) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs one sweep.
func (s *RetentionSweeper) RunOnce() {
	removed, err := s.store.Sweep(s.retention)
	if err != nil {
		s.log.Warn("retention sweep incomplete", zap.Int("removed", removed), zap.Error(err))
		return
	}
	if removed > 0 {
		s.log.Info("retention sweep completed", zap.Int("removed", removed))
	}
}
