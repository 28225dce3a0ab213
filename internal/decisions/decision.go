// Package decisions persists classification decisions and reviewer
// corrections and exposes them over HTTP. Classification and correction
// semantics belong to the engine; this package loads document content,
// records outcomes, and moves the document through its review states.
package decisions

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbiter/internal/calibration"
	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/internal/consensus"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/internal/safety"
	"github.com/JaimeStill/arbiter/internal/scoring"
)

// Decision is a persisted engine decision.
type Decision struct {
	ID                uuid.UUID            `json:"id"`
	DocumentID        uuid.UUID            `json:"document_id"`
	FinalCategory     category.Category    `json:"final_category"`
	RawConfidence     float64              `json:"raw_confidence"`
	FinalConfidence   float64              `json:"final_confidence"`
	RequiresReview    bool                 `json:"requires_review"`
	AutoApprovalScore float64              `json:"auto_approval_score"`
	Agreed            bool                 `json:"agreed"`
	AgreementStrength float64              `json:"agreement_strength"`
	IsSafe            bool                 `json:"is_safe"`
	Degraded          bool                 `json:"degraded"`
	Reasoning         scoring.Reasoning    `json:"decision_reasoning"`
	Consensus         *consensus.Result    `json:"consensus,omitempty"`
	Calibration       *calibration.Result  `json:"calibration,omitempty"`
	Safety            safety.Verdict       `json:"safety"`
	Citations         []citations.Resolved `json:"citations"`
	Drafts            []consensus.Draft    `json:"drafts,omitempty"`
	DecidedAt         time.Time            `json:"decided_at"`
}

// Engine returns the decision in engine form.
func (d Decision) Engine() *engine.Decision {
	return &engine.Decision{
		DocumentID:        d.DocumentID.String(),
		FinalCategory:     d.FinalCategory,
		RawConfidence:     d.RawConfidence,
		FinalConfidence:   d.FinalConfidence,
		RequiresReview:    d.RequiresReview,
		AutoApprovalScore: d.AutoApprovalScore,
		Reasoning:         d.Reasoning,
		Consensus:         d.Consensus,
		Calibration:       d.Calibration,
		Safety:            d.Safety,
		Citations:         d.Citations,
		Drafts:            d.Drafts,
		DecidedAt:         d.DecidedAt,
	}
}

// Correction is a persisted reviewer verdict on a decision. A corrected
// category equal to the original records a confirmation.
type Correction struct {
	ID                uuid.UUID         `json:"id"`
	DecisionID        uuid.UUID         `json:"decision_id"`
	DocumentID        uuid.UUID         `json:"document_id"`
	OriginalCategory  category.Category `json:"original_category"`
	CorrectedCategory category.Category `json:"corrected_category"`
	Reviewer          string            `json:"reviewer"`
	ReviewerNote      string            `json:"reviewer_note,omitempty"`
	CorrectedAt       time.Time         `json:"corrected_at"`
}

// Confirmed reports whether the reviewer kept the original category.
func (c Correction) Confirmed() bool {
	return c.OriginalCategory == c.CorrectedCategory
}

// ClassifyCommand optionally supplies pre-computed drafts. When Drafts is
// empty the configured model drafts the verdicts.
type ClassifyCommand struct {
	Drafts []consensus.Draft `json:"drafts,omitempty" validate:"max=2,dive"`
}

// BatchCommand classifies several registered documents.
type BatchCommand struct {
	DocumentIDs []uuid.UUID `json:"document_ids" validate:"required,min=1,max=100,dive,required"`
}

// BatchResult is the outcome of one document in a batch. Exactly one of
// Decision and Error is set.
type BatchResult struct {
	DocumentID uuid.UUID `json:"document_id"`
	Decision   *Decision `json:"decision,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// CorrectionCommand carries a reviewer's category for a decision. Reviewer
// is ignored when the request is authenticated.
type CorrectionCommand struct {
	Category category.Category `json:"category" validate:"required"`
	Reviewer string            `json:"reviewer,omitempty" validate:"max=256"`
	Note     string            `json:"note,omitempty" validate:"max=4000"`
}

// CorrectionOutcome pairs the stored correction with the statistics it
// changed.
type CorrectionOutcome struct {
	Correction Correction               `json:"correction"`
	Result     *engine.CorrectionResult `json:"result"`
}
