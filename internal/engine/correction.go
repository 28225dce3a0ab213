package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/pkg/repository"
)

// SubmitCorrection feeds a reviewer's verdict into the accuracy tracker and
// returns the updated statistics for the original and corrected categories.
func (e *Engine) SubmitCorrection(ctx context.Context, c Correction) (*CorrectionResult, error) {
	if err := e.checkCorrection(c); err != nil {
		return nil, err
	}

	ctx, span := startCorrection(ctx, "engine.submit_correction", c)
	defer span.End()

	if err := e.tracker.RecordCorrection(ctx, c.Original, c.Corrected, c.Confidence); err != nil {
		return nil, e.journalErr(ctx, err)
	}
	return e.finishCorrection(ctx, c), nil
}

// PendingCorrection is a correction journaled inside a caller's
// transaction. Commit applies it once the transaction has committed.
type PendingCorrection struct {
	engine     *Engine
	correction Correction
	staged     *accuracy.Staged
}

// Commit makes the correction visible to the tracker and returns the
// updated statistics.
func (p *PendingCorrection) Commit(ctx context.Context) *CorrectionResult {
	p.staged.Apply()
	return p.engine.finishCorrection(ctx, p.correction)
}

// StageCorrection journals a correction through exec, an open transaction,
// leaving the tracker unchanged until Commit is called on the result. A
// rolled-back transaction simply discards the pending correction.
func (e *Engine) StageCorrection(ctx context.Context, exec repository.Executor, c Correction) (*PendingCorrection, error) {
	if err := e.checkCorrection(c); err != nil {
		return nil, err
	}

	ctx, span := startCorrection(ctx, "engine.stage_correction", c)
	defer span.End()

	staged, err := e.tracker.StageCorrection(ctx, exec, c.Original, c.Corrected, c.Confidence)
	if err != nil {
		return nil, e.journalErr(ctx, err)
	}
	return &PendingCorrection{engine: e, correction: c, staged: staged}, nil
}

func (e *Engine) checkCorrection(c Correction) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if !c.Original.Valid() || !c.Corrected.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, category.ErrInvalidCategory)
	}
	return nil
}

func startCorrection(ctx context.Context, name string, c Correction) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("arbiter.document_id", c.DocumentID),
			attribute.Bool("arbiter.changed", c.Changed()),
		),
	)
}

func (e *Engine) journalErr(ctx context.Context, err error) error {
	if errors.Is(err, accuracy.ErrJournal) {
		e.halt(ctx, err)
		return fmt.Errorf("%w: %w", ErrHalted, err)
	}
	return err
}

func (e *Engine) finishCorrection(ctx context.Context, c Correction) *CorrectionResult {
	e.observer.ObserveCorrection(c)
	e.logger.InfoContext(ctx, "correction applied",
		"document_id", c.DocumentID,
		"original", c.Original,
		"corrected", c.Corrected,
		"reviewer", c.Reviewer,
	)

	stats := []accuracy.Stats{e.tracker.Stats(c.Original)}
	if c.Changed() {
		stats = append(stats, e.tracker.Stats(c.Corrected))
	}

	return &CorrectionResult{
		DocumentID: c.DocumentID,
		Changed:    c.Changed(),
		Stats:      stats,
		MacroF1:    e.tracker.MacroF1(),
	}
}
