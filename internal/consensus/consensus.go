// Package consensus reconciles the draft verdicts produced by independent
// classification passes over the same document.
package consensus

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/arbiter/internal/category"
)

// Input errors for reconciliation.
var (
	ErrNoDrafts      = errors.New("at least one draft verdict is required")
	ErrTooManyDrafts = errors.New("at most two draft verdicts are supported")
	ErrInvalidDraft  = errors.New("invalid draft verdict")
)

// Draft is the raw output of one model invocation. It is never modified
// after creation.
type Draft struct {
	Category      category.Category `json:"category"`
	RawConfidence float64           `json:"raw_confidence"`
	Reasoning     string            `json:"reasoning"`
	CitedExcerpts []string          `json:"cited_excerpts"`
	PassIndex     int               `json:"pass_index"`
	Temperature   float64           `json:"temperature"`
}

// Validate checks the draft for a known category and a confidence in [0,1].
func (d Draft) Validate() error {
	if !d.Category.Valid() {
		return fmt.Errorf("%w: pass %d: %w", ErrInvalidDraft, d.PassIndex, category.ErrInvalidCategory)
	}
	if d.RawConfidence < 0 || d.RawConfidence > 1 {
		return fmt.Errorf("%w: pass %d: raw_confidence %v outside [0,1]", ErrInvalidDraft, d.PassIndex, d.RawConfidence)
	}
	return nil
}

// Result is the reconciled view of one or two drafts.
type Result struct {
	Agreed            bool              `json:"agreed"`
	WinningCategory   category.Category `json:"winning_category"`
	PassConfidences   map[int]float64   `json:"pass_confidences"`
	AgreementStrength float64           `json:"agreement_strength"`
	Passes            int               `json:"passes"`
}

// SinglePass reports whether the result was produced from one draft.
func (r Result) SinglePass() bool {
	return r.Passes == 1
}

// Reconcile produces a Result from one or two drafts of the same document.
//
// Two matching drafts agree with strength equal to the lower confidence.
// Disagreements resolve to the more restrictive tier with zero strength.
// A single draft passes through as agreed with zero strength.
func Reconcile(drafts ...Draft) (Result, error) {
	switch len(drafts) {
	case 0:
		return Result{}, ErrNoDrafts
	case 1, 2:
	default:
		return Result{}, fmt.Errorf("%w: got %d", ErrTooManyDrafts, len(drafts))
	}

	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			return Result{}, err
		}
	}

	confidences := make(map[int]float64, len(drafts))
	for _, d := range drafts {
		confidences[d.PassIndex] = d.RawConfidence
	}

	if len(drafts) == 1 {
		return Result{
			Agreed:          true,
			WinningCategory: drafts[0].Category,
			PassConfidences: confidences,
			Passes:          1,
		}, nil
	}

	a, b := drafts[0], drafts[1]
	if a.PassIndex == b.PassIndex {
		return Result{}, fmt.Errorf("%w: duplicate pass_index %d", ErrInvalidDraft, a.PassIndex)
	}

	if a.Category == b.Category {
		return Result{
			Agreed:            true,
			WinningCategory:   a.Category,
			PassConfidences:   confidences,
			AgreementStrength: min(a.RawConfidence, b.RawConfidence),
			Passes:            2,
		}, nil
	}

	return Result{
		Agreed:          false,
		WinningCategory: category.MoreRestrictive(a.Category, b.Category),
		PassConfidences: confidences,
		Passes:          2,
	}, nil
}

// Winners returns the drafts whose category matches the winning category,
// in pass order.
func Winners(r Result, drafts []Draft) []Draft {
	out := make([]Draft, 0, len(drafts))
	for _, d := range drafts {
		if d.Category == r.WinningCategory {
			out = append(out, d)
		}
	}
	return out
}

// RawConfidence returns the highest raw confidence among drafts that chose
// the winning category.
func RawConfidence(r Result, drafts []Draft) float64 {
	var best float64
	for _, d := range Winners(r, drafts) {
		best = max(best, d.RawConfidence)
	}
	return best
}
