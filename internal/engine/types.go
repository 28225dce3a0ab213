package engine

import (
	"context"
	"time"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/internal/calibration"
	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/internal/consensus"
	"github.com/JaimeStill/arbiter/internal/safety"
	"github.com/JaimeStill/arbiter/internal/scoring"
)

// Drafter is the model-call collaborator that produces one draft verdict
// per pass.
type Drafter interface {
	Draft(ctx context.Context, req DraftRequest) (consensus.Draft, error)
}

// SafetyChecker runs content safety validation. *safety.Validator satisfies it.
type SafetyChecker interface {
	Validate(ctx context.Context, content string) (safety.Verdict, error)
}

// DraftRequest is the input to a single drafting pass.
type DraftRequest struct {
	DocumentID  string
	Content     citations.ContentMap
	PassIndex   int
	Temperature float64
}

// Request asks the engine to classify one document. Drafts may be supplied
// directly, in which case no model passes run.
type Request struct {
	DocumentID string               `json:"document_id" validate:"required"`
	Content    citations.ContentMap `json:"content_map" validate:"required,min=1"`
	Drafts     []consensus.Draft    `json:"drafts,omitempty" validate:"max=2"`
}

// Decision is the terminal, immutable output of a classification.
type Decision struct {
	DocumentID        string               `json:"document_id"`
	FinalCategory     category.Category    `json:"final_category"`
	RawConfidence     float64              `json:"raw_confidence"`
	FinalConfidence   float64              `json:"final_confidence"`
	RequiresReview    bool                 `json:"requires_review"`
	AutoApprovalScore float64              `json:"auto_approval_score"`
	Reasoning         scoring.Reasoning    `json:"decision_reasoning"`
	Consensus         *consensus.Result    `json:"consensus,omitempty"`
	Calibration       *calibration.Result  `json:"calibration,omitempty"`
	Safety            safety.Verdict       `json:"safety"`
	Citations         []citations.Resolved `json:"citations"`
	Drafts            []consensus.Draft    `json:"drafts,omitempty"`
	DecidedAt         time.Time            `json:"decided_at"`
}

// BatchResult is the outcome of one document in a batch. Exactly one of
// Decision and Err is set.
type BatchResult struct {
	Index      int       `json:"index"`
	DocumentID string    `json:"document_id"`
	Decision   *Decision `json:"decision,omitempty"`
	Err        error     `json:"-"`
}

// Correction is a reviewer's verdict on an earlier decision. A corrected
// category equal to the original confirms the decision.
type Correction struct {
	DocumentID string            `json:"document_id" validate:"required"`
	Original   category.Category `json:"original_category" validate:"required"`
	Corrected  category.Category `json:"corrected_category" validate:"required"`
	Confidence float64           `json:"confidence" validate:"gte=0,lte=1"`
	Reviewer   string            `json:"reviewer,omitempty"`
	Note       string            `json:"note,omitempty" validate:"max=4000"`
}

// Changed reports whether the reviewer changed the category.
func (c Correction) Changed() bool {
	return c.Original != c.Corrected
}

// CorrectionResult carries the statistics affected by a correction.
type CorrectionResult struct {
	DocumentID string           `json:"document_id"`
	Changed    bool             `json:"changed"`
	Stats      []accuracy.Stats `json:"stats"`
	MacroF1    float64          `json:"macro_f1"`
}
