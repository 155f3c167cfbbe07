package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the calendar reconciler on a fixed interval.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	interval   time.Duration
	log        *zap.Logger
}

func NewScheduler(reconciler *Reconciler, intervalMin int, log *zap.Logger) *Scheduler {
	if intervalMin <= 0 {
		intervalMin = 15
	}

	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		interval:   time.Duration(intervalMin) * time.Minute,
		log:        log,
	}
}

// Start schedules the reconciliation job and begins the cron loop.
func (s *Scheduler) Start() error {
	spec := "@every " + s.interval.String()

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return fmt.Errorf("scheduling calendar reconciliation: %w", err)
	}

	s.cron.Start()
	s.log.Info("calendar reconciler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop shuts down the cron loop, waiting for a running pass to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("calendar reconciler stopped")
}

// TriggerSync runs a reconciliation pass immediately.
func (s *Scheduler) TriggerSync() {
	go s.runOnce()
}

func (s *Scheduler) runOnce() {
	result, err := s.reconciler.Run(context.Background())
	if err != nil {
		s.log.Warn("calendar reconciliation failed", zap.Error(err))
		return
	}

	if result.Unsynced > 0 {
		s.log.Info("calendar reconciliation completed",
			zap.Int("unsynced", result.Unsynced),
			zap.Int("pushed", result.Pushed),
			zap.Int("failed", result.Failed))
	}
}
