// Package metrics exposes engine activity as Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/internal/engine"
)

const namespace = "arbiter"

// Collector implements engine.Observer.
type Collector struct {
	decisions        *prometheus.CounterVec
	decisionDuration prometheus.Histogram
	scores           prometheus.Histogram
	passes           *prometheus.CounterVec
	safetyRejections *prometheus.CounterVec
	safetyDegraded   prometheus.Counter
	unresolved       prometheus.Counter
	corrections      *prometheus.CounterVec
}

// New registers the engine instruments with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	return &Collector{
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Decisions by final category and outcome",
		}, []string{"category", "outcome"}),

		decisionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decision_duration_seconds",
			Help:      "Time to produce a decision in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		scores: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "auto_approval_score",
			Help:      "Distribution of auto-approval scores",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),

		passes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "passes_total",
			Help:      "Drafting passes by outcome",
		}, []string{"outcome"}),

		safetyRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "rejections_total",
			Help:      "Unsafe verdicts by the last layer reached",
		}, []string{"layer"}),

		safetyDegraded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "degraded_total",
			Help:      "Safety checks completed with an unavailable layer",
		}),

		unresolved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "citations",
			Name:      "unresolved_total",
			Help:      "Cited excerpts that matched no block",
		}),

		corrections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accuracy",
			Name:      "corrections_total",
			Help:      "Reviewer corrections by whether the category changed",
		}, []string{"changed"}),
	}
}

// ObserveDecision records a completed decision.
func (c *Collector) ObserveDecision(d *engine.Decision, elapsed time.Duration) {
	outcome := "auto_approved"
	if d.RequiresReview {
		outcome = "review"
	}
	c.decisions.WithLabelValues(string(d.FinalCategory), outcome).Inc()
	c.decisionDuration.Observe(elapsed.Seconds())
	c.scores.Observe(d.AutoApprovalScore)

	if !d.Safety.IsSafe {
		c.safetyRejections.WithLabelValues(string(d.Safety.LayerReached)).Inc()
	}
	if d.Safety.Degraded {
		c.safetyDegraded.Inc()
	}
	for _, cite := range d.Citations {
		if !cite.Resolved {
			c.unresolved.Inc()
		}
	}
}

// ObservePass records a drafting pass outcome.
func (c *Collector) ObservePass(outcome string) {
	c.passes.WithLabelValues(outcome).Inc()
}

// ObserveCorrection records a reviewer correction.
func (c *Collector) ObserveCorrection(corr engine.Correction) {
	c.corrections.WithLabelValues(strconv.FormatBool(corr.Changed())).Inc()
}

// RegisterAccuracy exposes tracker aggregates as gauges read at scrape time.
func RegisterAccuracy(reg prometheus.Registerer, tracker *accuracy.Tracker) {
	f := promauto.With(reg)

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "accuracy",
		Name:      "macro_f1",
		Help:      "Macro-averaged F1 across all categories",
	}, tracker.MacroF1)

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "accuracy",
		Name:      "auto_approval_rate",
		Help:      "Share of decisions that skipped review",
	}, func() float64 {
		return tracker.Snapshot().AutoApprovalRate
	})
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
