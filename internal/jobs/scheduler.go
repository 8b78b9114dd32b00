package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/highspring-tester/hat/internal/services"
)

const retryRunTimeout = 2 * time.Minute

// Scheduler runs periodic maintenance jobs on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	notifier services.ResultNotifier
	logger   *slog.Logger
}

// NewScheduler registers the notification retry job under schedule
// (standard five-field cron or a descriptor such as "@every 10m").
func NewScheduler(notifier services.ResultNotifier, schedule string, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger.With("component", "cron")}
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		notifier: notifier,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.RetryNotifications(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid notification retry schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RetryNotifications resends queued result mails once.
func (s *Scheduler) RetryNotifications(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, retryRunTimeout)
	defer cancel()

	start := time.Now()
	delivered, err := s.notifier.RetryPending(ctx)
	if err != nil {
		s.logger.Error("Notification retry failed", "error", err)
		return delivered
	}
	if delivered > 0 {
		s.logger.Info("Notification retry completed", "delivered", delivered, "duration", time.Since(start))
	}
	return delivered
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for a running job or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with a job still running")
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
