package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ClassifyBatch classifies documents concurrently, bounded by the worker
// count. A failure in one document is recorded in its result and never
// aborts its siblings. Results are returned in request order.
func (e *Engine) ClassifyBatch(ctx context.Context, reqs []Request) []BatchResult {
	ctx, span := tracer.Start(ctx, "engine.classify_batch",
		trace.WithAttributes(attribute.Int("arbiter.batch_size", len(reqs))),
	)
	defer span.End()

	results := make([]BatchResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.workerCount(len(reqs)))

	for i, req := range reqs {
		g.Go(func() error {
			results[i] = BatchResult{Index: i, DocumentID: req.DocumentID}
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			d, err := e.Classify(ctx, req)
			if err != nil {
				e.logger.WarnContext(ctx, "batch document failed",
					"document_id", req.DocumentID,
					"error", err,
				)
				results[i].Err = err
				return nil
			}
			results[i].Decision = d
			return nil
		})
	}

	_ = g.Wait()
	return results
}
