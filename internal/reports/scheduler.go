package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JaimeStill/arbiter/pkg/lifecycle"
)

// Scheduler runs an Exporter on a standard five-field cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	exporter *Exporter
	timeout  time.Duration
	logger   *slog.Logger
	ctx      context.Context
}

// NewScheduler validates schedule and registers the export job. Runs that
// overlap a still-running export are skipped.
func NewScheduler(exp *Exporter, schedule string, loc *time.Location, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	logger = logger.With("system", "reports-scheduler")
	cl := cronLogger{logger}

	s := &Scheduler{
		exporter: exp,
		timeout:  timeout,
		logger:   logger,
		ctx:      context.Background(),
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule once startup completes and stops it on shutdown,
// waiting for an in-flight export to finish.
func (s *Scheduler) Start(lc *lifecycle.Coordinator) error {
	s.ctx = lc.Context()

	lc.OnStartup(func() {
		s.cron.Start()
		s.logger.Info("report schedule started", "next", s.Next())
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-s.cron.Stop().Done()
		s.logger.Info("report schedule stopped")
	})

	return nil
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run() {
	ctx := context.WithoutCancel(s.ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.exporter.Export(ctx); err != nil {
		s.logger.Error("scheduled export failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
