package api

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/slack-go/slack"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/internal/config"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/internal/infrastructure"
	"github.com/JaimeStill/arbiter/internal/metrics"
	"github.com/JaimeStill/arbiter/internal/notify"
	"github.com/JaimeStill/arbiter/internal/pipeline"
	"github.com/JaimeStill/arbiter/internal/reports"
	"github.com/JaimeStill/arbiter/pkg/lifecycle"
	"github.com/JaimeStill/arbiter/pkg/pagination"
)

// Runtime extends Infrastructure with the decision engine and the
// API-specific systems built around it.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Engine     *engine.Engine
	Tracker    *accuracy.Tracker
	Registry   *prometheus.Registry
	Notifier   notify.Notifier
	Exporter   *reports.Exporter
	// Scheduler is nil when no report schedule is configured.
	Scheduler *reports.Scheduler
}

// NewRuntime creates an API runtime with a module-scoped logger. The
// accuracy tracker journals to the service database.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) (*Runtime, error) {
	logger := infra.Logger.With("module", "api")

	tracker := accuracy.NewTracker(
		accuracy.WithJournal(accuracy.NewPostgresJournal(infra.Database.Connection())),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(registry)
	metrics.RegisterAccuracy(registry, tracker)

	eng, err := pipeline.New(cfg, tracker, logger, engine.WithObserver(collector))
	if err != nil {
		return nil, err
	}

	exporter := reports.NewExporter(eng, infra.Storage, cfg.Reports.Prefix, logger)

	var scheduler *reports.Scheduler
	if cfg.Reports.Schedule != "" {
		scheduler, err = reports.NewScheduler(
			exporter,
			cfg.Reports.Schedule,
			cfg.Reports.Location(),
			cfg.Reports.TimeoutDuration(),
			logger,
		)
		if err != nil {
			return nil, err
		}
	}

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Pagination: cfg.API.Pagination,
		Engine:     eng,
		Tracker:    tracker,
		Registry:   registry,
		Notifier:   newNotifier(&cfg.Notify, logger),
		Exporter:   exporter,
		Scheduler:  scheduler,
	}, nil
}

// Start replays the accuracy journal during startup and starts the report
// schedule. A failed replay halts the engine; the service still starts so
// readiness can report the halt.
func (r *Runtime) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		if _, err := r.Engine.Restore(lc.Context()); err != nil {
			r.Logger.Error("accuracy journal replay failed", "error", err)
		}
	})

	if r.Scheduler != nil {
		if err := r.Scheduler.Start(lc); err != nil {
			return fmt.Errorf("report scheduler start failed: %w", err)
		}
	}
	return nil
}

// Ready reports whether the engine can accept work.
func (r *Runtime) Ready() bool {
	return !r.Engine.Halted()
}

func newNotifier(cfg *config.NotifyConfig, logger *slog.Logger) notify.Notifier {
	if !cfg.Enabled() {
		return notify.Nop{}
	}

	var opts []slack.Option
	if cfg.SlackAPIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.SlackAPIURL))
	}
	return notify.NewSlack(slack.New(cfg.SlackToken, opts...), cfg.SlackChannel, cfg.ReviewURL, logger)
}
