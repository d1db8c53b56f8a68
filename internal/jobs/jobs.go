// Package jobs runs periodic maintenance for the workspace.
package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Retrier requeues snapshot writes that failed earlier.
type Retrier interface {
	RetryFailed() int
}

// Scheduler drives background jobs on a cron instance.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "jobs.Scheduler")
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		logger: logger,
	}
}

// ScheduleRetry requeues failed writes every interval.
func (s *Scheduler) ScheduleRetry(retrier Retrier, interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("retry interval must be at least one second, got %s", interval)
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		RetryOnce(retrier, s.logger)
	})
	if err != nil {
		return fmt.Errorf("schedule persistence retry: %w", err)
	}
	return nil
}

// RetryOnce performs a single retry pass and logs when anything was requeued.
func RetryOnce(retrier Retrier, logger *slog.Logger) int {
	requeued := retrier.RetryFailed()
	if requeued > 0 {
		logger.Info("requeued failed snapshot writes", "count", requeued)
	}
	return requeued
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("background jobs started", "entries", len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("background jobs stopped")
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
