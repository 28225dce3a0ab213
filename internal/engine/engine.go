// Package engine orchestrates a classification: concurrent drafting passes
// and safety validation, consensus, calibration, scoring, citation
// resolution, and accuracy tracking.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/internal/calibration"
	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/internal/consensus"
	"github.com/JaimeStill/arbiter/internal/safety"
	"github.com/JaimeStill/arbiter/internal/scoring"
)

var tracer = otel.Tracer("github.com/JaimeStill/arbiter/internal/engine")

// Pass outcomes reported to an Observer.
const (
	PassOK      = "ok"
	PassTimeout = "timeout"
	PassFailed  = "failed"
)

// Observer receives engine events for instrumentation.
type Observer interface {
	ObserveDecision(d *Decision, elapsed time.Duration)
	ObservePass(outcome string)
	ObserveCorrection(c Correction)
}

type nopObserver struct{}

func (nopObserver) ObserveDecision(*Decision, time.Duration) {}
func (nopObserver) ObservePass(string)                       {}
func (nopObserver) ObserveCorrection(Correction)             {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver registers an instrumentation observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithClock overrides the decision timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine classifies documents. It is safe for concurrent use.
type Engine struct {
	cfg        Config
	tracker    *accuracy.Tracker
	drafter    Drafter
	safety     SafetyChecker
	locator    *citations.Locator
	calibrator *calibration.Calibrator
	scorer     *scoring.Scorer
	validate   *validator.Validate
	logger     *slog.Logger
	observer   Observer
	now        func() time.Time

	mu      sync.RWMutex
	haltErr error
}

// New creates an Engine. drafter may be nil when every request supplies its
// own drafts.
func New(cfg Config, tracker *accuracy.Tracker, drafter Drafter, checker SafetyChecker, locator *citations.Locator, opts ...Option) (*Engine, error) {
	if tracker == nil || checker == nil || locator == nil {
		return nil, fmt.Errorf("%w: tracker, safety checker, and locator are required", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cal, err := calibration.New(cfg.Calibration, tracker)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	scorer, err := scoring.New(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	e := &Engine{
		cfg:        cfg,
		tracker:    tracker,
		drafter:    drafter,
		safety:     checker,
		locator:    locator,
		calibrator: cal,
		scorer:     scorer,
		validate:   validator.New(),
		logger:     slog.Default(),
		observer:   nopObserver{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("system", "engine")
	return e, nil
}

// Halted reports whether a journal failure has stopped the engine.
func (e *Engine) Halted() bool {
	return e.HaltCause() != nil
}

// HaltCause returns the journal error that halted the engine, if any.
func (e *Engine) HaltCause() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.haltErr
}

// Restore replays the accuracy journal. A replay failure halts the engine
// because the aggregate would otherwise start from a partial history.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	n, err := e.tracker.Restore(ctx)
	if err != nil {
		e.halt(ctx, err)
		return n, fmt.Errorf("%w: %w", ErrHalted, err)
	}
	e.logger.InfoContext(ctx, "accuracy journal restored", "entries", n)
	return n, nil
}

// Snapshot returns the current accuracy aggregate.
func (e *Engine) Snapshot() accuracy.Snapshot {
	return e.tracker.Snapshot()
}

// Report returns the exportable accuracy report.
func (e *Engine) Report() accuracy.Report {
	return e.tracker.Report()
}

// Classify runs the full decision pipeline for one document. The decision
// is recorded with the accuracy tracker only once it is fully scored; a
// cancelled context leaves the tracker untouched.
func (e *Engine) Classify(ctx context.Context, req Request) (*Decision, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := req.Content.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if len(req.Drafts) == 0 && e.drafter == nil {
		return nil, fmt.Errorf("%w: no drafts supplied and no drafter configured", ErrInvalidRequest)
	}

	ctx, span := tracer.Start(ctx, "engine.classify",
		trace.WithAttributes(attribute.String("arbiter.document_id", req.DocumentID)),
	)
	defer span.End()

	start := time.Now()
	d, err := e.classify(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("arbiter.category", string(d.FinalCategory)),
		attribute.Float64("arbiter.score", d.AutoApprovalScore),
		attribute.Bool("arbiter.requires_review", d.RequiresReview),
	)
	e.observer.ObserveDecision(d, time.Since(start))
	return d, nil
}

func (e *Engine) classify(ctx context.Context, req Request) (*Decision, error) {
	draftCtx, cancelDrafts := context.WithCancel(ctx)
	defer cancelDrafts()

	var (
		verdict safety.Verdict
		g       errgroup.Group
	)

	g.Go(func() error {
		v, err := e.checkSafety(ctx, req.Content.Text())
		if err != nil {
			return err
		}
		verdict = v
		if !v.IsSafe {
			cancelDrafts()
		}
		return nil
	})

	drafts, notes, draftErr := e.draft(draftCtx, req)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var d *Decision
	if !verdict.IsSafe {
		d = e.reject(req, verdict)
	} else {
		if draftErr != nil {
			return nil, draftErr
		}
		var err error
		if d, err = e.decide(req, drafts, verdict); err != nil {
			return nil, err
		}
		for _, n := range notes {
			d.Reasoning.AddNote("%s", n)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.record(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Engine) checkSafety(ctx context.Context, text string) (safety.Verdict, error) {
	ctx, span := tracer.Start(ctx, "engine.safety")
	defer span.End()

	v, err := e.safety.Validate(ctx, text)
	if err != nil {
		span.RecordError(err)
		return v, err
	}

	span.SetAttributes(
		attribute.Bool("arbiter.safe", v.IsSafe),
		attribute.Bool("arbiter.degraded", v.Degraded),
		attribute.String("arbiter.layer_reached", string(v.LayerReached)),
	)
	if v.Degraded {
		e.logger.WarnContext(ctx, "safety check degraded", "layers", v.DegradedLayers)
	}
	return v, nil
}

// draft runs the configured passes concurrently. A pass that fails or
// exceeds the pass timeout is treated as absent and described in notes.
func (e *Engine) draft(ctx context.Context, req Request) ([]consensus.Draft, []string, error) {
	if len(req.Drafts) > 0 {
		return req.Drafts, nil, nil
	}

	ctx, span := tracer.Start(ctx, "engine.draft")
	defer span.End()

	temps := e.cfg.temperatures()
	drafts := make([]consensus.Draft, len(temps))
	errs := make([]error, len(temps))

	// Pass failures are collected per index rather than cancelling siblings.
	var g errgroup.Group
	for i, temp := range temps {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, e.cfg.PassTimeout)
			defer cancel()

			d, err := e.drafter.Draft(pctx, DraftRequest{
				DocumentID:  req.DocumentID,
				Content:     req.Content,
				PassIndex:   i + 1,
				Temperature: temp,
			})
			if err == nil {
				d.PassIndex = i + 1
				d.Temperature = temp
				err = d.Validate()
			}
			drafts[i], errs[i] = d, err
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		out      []consensus.Draft
		notes    []string
		firstErr error
	)

	for i, err := range errs {
		pass := i + 1
		switch {
		case err == nil:
			out = append(out, drafts[i])
			e.observer.ObservePass(PassOK)
		case errors.Is(err, context.DeadlineExceeded):
			notes = append(notes, fmt.Sprintf("pass %d timed out after %s: treated as absent", pass, e.cfg.PassTimeout))
			e.logger.WarnContext(ctx, "pass timed out",
				"document_id", req.DocumentID,
				"pass", pass,
				"timeout", e.cfg.PassTimeout,
			)
			e.observer.ObservePass(PassTimeout)
		default:
			if firstErr == nil {
				firstErr = err
			}
			notes = append(notes, fmt.Sprintf("pass %d failed: %v: treated as absent", pass, err))
			e.logger.WarnContext(ctx, "pass failed",
				"document_id", req.DocumentID,
				"pass", pass,
				"error", err,
			)
			e.observer.ObservePass(PassFailed)
		}
	}

	span.SetAttributes(attribute.Int("arbiter.drafts", len(out)))

	if len(out) == 0 {
		if firstErr != nil {
			return nil, notes, fmt.Errorf("%w: %w", ErrDraftFailed, firstErr)
		}
		return nil, notes, fmt.Errorf("%w: all %d passes exceeded %s", ErrPassTimeout, len(temps), e.cfg.PassTimeout)
	}
	return out, notes, nil
}

func (e *Engine) decide(req Request, drafts []consensus.Draft, verdict safety.Verdict) (*Decision, error) {
	res, err := consensus.Reconcile(drafts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	raw := consensus.RawConfidence(res, drafts)
	cal := e.calibrator.Calibrate(raw, res.WinningCategory, res.AgreementStrength)

	out := e.scorer.Score(scoring.Input{
		CalibratedConfidence: cal.Calibrated,
		Consensus:            res,
		HistoricalPrecision:  cal.Precision,
		Safety:               verdict,
	})

	if cal.UsedPrior {
		out.Reasoning.AddNote(
			"%s has %d of %d required observations: neutral prior %.2f used as precision",
			res.WinningCategory, cal.Observations, e.cfg.Calibration.MinObservations, cal.Precision,
		)
	}
	if cal.Capped {
		out.Reasoning.AddNote("calibrated confidence capped at raw confidence %.3f", raw)
	}

	return &Decision{
		DocumentID:        req.DocumentID,
		FinalCategory:     out.FinalCategory,
		RawConfidence:     raw,
		FinalConfidence:   out.FinalConfidence,
		RequiresReview:    out.RequiresReview,
		AutoApprovalScore: out.Score,
		Reasoning:         out.Reasoning,
		Consensus:         &res,
		Calibration:       &cal,
		Safety:            verdict,
		Citations:         e.locator.ResolveAll(citedExcerpts(consensus.Winners(res, drafts)), req.Content),
		Drafts:            drafts,
		DecidedAt:         e.now().UTC(),
	}, nil
}

// reject builds the unsafe decision. Pattern matches are resolved as
// citations so reviewers can see what was flagged.
func (e *Engine) reject(req Request, verdict safety.Verdict) *Decision {
	out := e.scorer.Score(scoring.Input{Safety: verdict})

	var excerpts []string
	for _, f := range verdict.Findings {
		for _, m := range f.Matches {
			if !slices.Contains(excerpts, m) {
				excerpts = append(excerpts, m)
			}
		}
	}

	return &Decision{
		DocumentID:        req.DocumentID,
		FinalCategory:     out.FinalCategory,
		FinalConfidence:   out.FinalConfidence,
		RequiresReview:    out.RequiresReview,
		AutoApprovalScore: out.Score,
		Reasoning:         out.Reasoning,
		Safety:            verdict,
		Citations:         e.locator.ResolveAll(excerpts, req.Content),
		DecidedAt:         e.now().UTC(),
	}
}

func (e *Engine) record(ctx context.Context, d *Decision) error {
	err := e.tracker.RecordDecision(ctx, d.FinalCategory, d.FinalConfidence, !d.RequiresReview)
	if err != nil {
		if errors.Is(err, accuracy.ErrJournal) {
			e.halt(ctx, err)
			return fmt.Errorf("%w: %w", ErrHalted, err)
		}
		return err
	}

	e.logger.InfoContext(ctx, "decision recorded",
		"document_id", d.DocumentID,
		"category", d.FinalCategory,
		"score", d.AutoApprovalScore,
		"requires_review", d.RequiresReview,
	)
	return nil
}

func (e *Engine) ready() error {
	if cause := e.HaltCause(); cause != nil {
		return fmt.Errorf("%w: %w", ErrHalted, cause)
	}
	return nil
}

func (e *Engine) halt(ctx context.Context, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.haltErr == nil {
		e.haltErr = cause
		e.logger.ErrorContext(ctx, "accuracy journal failed, engine halted", "error", cause)
	}
}

func citedExcerpts(drafts []consensus.Draft) []string {
	var out []string
	for _, d := range drafts {
		for _, x := range d.CitedExcerpts {
			if !slices.Contains(out, x) {
				out = append(out, x)
			}
		}
	}
	return out
}
