package recommender

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler wraps robfig/cron and manages the refresh loop.
type Scheduler struct {
	cron      *cron.Cron
	chain     cron.Chain
	refresher *Refresher
	log       *zap.Logger
	spec      string // cron spec, e.g. "@every 6h"
	wg        sync.WaitGroup
}

// NewScheduler creates a Scheduler that fires every intervalHours hours.
// A cycle still running when the next one is due makes that one skip.
func NewScheduler(refresher *Refresher, intervalHours int, log *zap.Logger) *Scheduler {
	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(cl)),
		chain:     cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		refresher: refresher,
		log:       log,
		spec:      fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. It also runs one refresh
// immediately so the cache is populated without waiting for the first tick.
// The immediate run and the ticks share one wrapped job, so they never overlap.
func (s *Scheduler) Start(ctx context.Context) error {
	job := s.chain.Then(cron.FuncJob(func() {
		s.runRefresh(ctx)
	}))
	if _, err := s.cron.AddJob(s.spec, job); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", zap.String("spec", s.spec))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job.Run()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running cycle to finish,
// including the one started by Start.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.wg.Wait()
	<-done.Done()
	s.log.Info("cron stopped")
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	s.log.Info("refresh cycle started")

	stats, err := s.refresher.Run(ctx)
	if err != nil {
		s.log.Error("refresh cycle failed", zap.Error(err))
		return
	}

	s.log.Info("refresh cycle complete",
		zap.Int("users", stats.Users),
		zap.Int("cached", stats.Cached),
		zap.Int("failed", stats.Failed),
		zap.Duration("took", stats.Duration),
	)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
