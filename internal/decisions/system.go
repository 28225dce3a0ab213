package decisions

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/pkg/pagination"
	"github.com/JaimeStill/arbiter/pkg/repository"
)

// System defines the public contract for decision domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Decision], error)

	Find(ctx context.Context, id uuid.UUID) (*Decision, error)

	// FindByDocument returns the most recent decision for a document.
	FindByDocument(ctx context.Context, documentID uuid.UUID) (*Decision, error)

	Classify(ctx context.Context, documentID uuid.UUID, cmd ClassifyCommand) (*Decision, error)
	ClassifyBatch(ctx context.Context, cmd BatchCommand) ([]BatchResult, error)

	// Correct returns ErrAlreadyCorrected when the decision already has a
	// correction.
	Correct(ctx context.Context, id uuid.UUID, cmd CorrectionCommand) (*CorrectionOutcome, error)
	Corrections(ctx context.Context, id uuid.UUID) ([]Correction, error)
}

// Engine is the decision engine as seen by the decision domain.
// *engine.Engine satisfies it.
type Engine interface {
	Classify(ctx context.Context, req engine.Request) (*engine.Decision, error)
	ClassifyBatch(ctx context.Context, reqs []engine.Request) []engine.BatchResult
	StageCorrection(ctx context.Context, exec repository.Executor, c engine.Correction) (*engine.PendingCorrection, error)
}

// ContentSource loads the content map of a registered document.
// documents.System satisfies it.
type ContentSource interface {
	Content(ctx context.Context, id uuid.UUID) (citations.ContentMap, error)
}
