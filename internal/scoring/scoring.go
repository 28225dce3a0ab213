// Package scoring combines calibrated confidence, consensus, historical
// precision, and safety into the auto-approval decision.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/internal/consensus"
	"github.com/JaimeStill/arbiter/internal/safety"
)

// ErrInvalidConfig is returned for negative weights, weights that do not sum
// to 1, or a threshold outside [0,1].
var ErrInvalidConfig = errors.New("invalid scoring config")

const (
	weightTolerance  = 1e-6
	thresholdEpsilon = 1e-9
)

// Factor names used in reasoning breakdowns.
const (
	FactorConfidence = "confidence"
	FactorConsensus  = "consensus"
	FactorPrecision  = "precision"
	FactorSafety     = "safety"
)

// Weights are the factor weights of the auto-approval score.
type Weights struct {
	Confidence float64 `json:"confidence"`
	Consensus  float64 `json:"consensus"`
	Precision  float64 `json:"precision"`
	Safety     float64 `json:"safety"`
}

// DefaultWeights returns the 0.4 / 0.3 / 0.2 / 0.1 split.
func DefaultWeights() Weights {
	return Weights{
		Confidence: 0.4,
		Consensus:  0.3,
		Precision:  0.2,
		Safety:     0.1,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Confidence + w.Consensus + w.Precision + w.Safety
}

// Validate checks that weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	if w.Confidence < 0 || w.Consensus < 0 || w.Precision < 0 || w.Safety < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidConfig)
	}
	if math.Abs(w.Sum()-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", ErrInvalidConfig, w.Sum())
	}
	return nil
}

// Config holds scorer parameters.
type Config struct {
	Weights   Weights
	Threshold float64
	// ScaleConsensusByStrength multiplies the consensus factor by the
	// agreement strength instead of using 1 for any agreement.
	ScaleConsensusByStrength bool
	// ReviewOnDegraded routes decisions with a degraded safety check to review.
	ReviewOnDegraded bool
}

// DefaultConfig returns default weights, a 0.75 threshold, and review on
// degraded safety checks.
func DefaultConfig() Config {
	return Config{
		Weights:          DefaultWeights(),
		Threshold:        0.75,
		ReviewOnDegraded: true,
	}
}

// Validate checks weights and threshold.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidConfig, c.Threshold)
	}
	return nil
}

// Input carries every factor the scorer combines.
type Input struct {
	CalibratedConfidence float64
	Consensus            consensus.Result
	HistoricalPrecision  float64
	Safety               safety.Verdict
}

// Factor is one weighted term of the score.
type Factor struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// Reasoning is the auditable breakdown of a decision.
type Reasoning struct {
	Summary   string   `json:"summary"`
	Factors   []Factor `json:"factors,omitempty"`
	Score     float64  `json:"score"`
	Threshold float64  `json:"threshold"`
	Override  string   `json:"override,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// AddNote appends an observation about how the decision was reached.
func (r *Reasoning) AddNote(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// String renders the reasoning verbatim for reviewers.
func (r Reasoning) String() string {
	var b strings.Builder
	b.WriteString(r.Summary)
	if r.Override != "" {
		fmt.Fprintf(&b, "\noverride: %s", r.Override)
	}
	for _, f := range r.Factors {
		fmt.Fprintf(&b, "\n- %s: %.3f x %.2f = %.3f", f.Name, f.Value, f.Weight, f.Contribution)
	}
	for _, n := range r.Notes {
		fmt.Fprintf(&b, "\nnote: %s", n)
	}
	return b.String()
}

// Result is the scorer's outcome.
type Result struct {
	Score           float64           `json:"auto_approval_score"`
	RequiresReview  bool              `json:"requires_review"`
	FinalCategory   category.Category `json:"final_category"`
	FinalConfidence float64           `json:"final_confidence"`
	Reasoning       Reasoning         `json:"decision_reasoning"`
}

// Scorer computes auto-approval decisions.
type Scorer struct {
	cfg Config
}

// New creates a Scorer after validating cfg.
func New(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score evaluates in. An unsafe safety verdict overrides the weighted
// formula: the result is the unsafe tier with zero confidence and review
// required. Scores equal to the threshold auto-approve.
func (s *Scorer) Score(in Input) Result {
	if !in.Safety.IsSafe {
		return s.reject(in)
	}

	consensusValue := 0.0
	if in.Consensus.Agreed {
		consensusValue = 1.0
		if s.cfg.ScaleConsensusByStrength {
			consensusValue = in.Consensus.AgreementStrength
		}
	}

	w := s.cfg.Weights
	factors := []Factor{
		factor(FactorConfidence, w.Confidence, in.CalibratedConfidence),
		factor(FactorConsensus, w.Consensus, consensusValue),
		factor(FactorPrecision, w.Precision, in.HistoricalPrecision),
		factor(FactorSafety, w.Safety, in.Safety.SafetyScore),
	}

	var score float64
	for _, f := range factors {
		score += f.Contribution
	}
	score = min(max(score, 0), 1)

	review := score < s.cfg.Threshold-thresholdEpsilon

	r := Reasoning{
		Factors:   factors,
		Score:     score,
		Threshold: s.cfg.Threshold,
	}

	switch {
	case in.Consensus.SinglePass():
		r.AddNote("single-pass consensus: no corroboration credit")
	case !in.Consensus.Agreed:
		r.AddNote("passes disagreed: resolved to more restrictive %s", in.Consensus.WinningCategory)
	}

	if in.Safety.Degraded {
		r.AddNote("safety check degraded: %s unavailable", joinLayers(in.Safety.DegradedLayers))
		if s.cfg.ReviewOnDegraded && !review {
			review = true
			r.AddNote("review forced by degraded safety check")
		}
	}

	if review {
		weakest := weakestFactor(factors)
		r.Summary = fmt.Sprintf(
			"review required: score %.3f below threshold %.3f; weakest factor %s (%.3f)",
			score, s.cfg.Threshold, weakest.Name, weakest.Value,
		)
		if score >= s.cfg.Threshold-thresholdEpsilon {
			r.Summary = fmt.Sprintf(
				"review required: score %.3f meets threshold %.3f but safety check was degraded",
				score, s.cfg.Threshold,
			)
		}
	} else {
		r.Summary = fmt.Sprintf("auto-approved: score %.3f meets threshold %.3f", score, s.cfg.Threshold)
	}

	return Result{
		Score:           score,
		RequiresReview:  review,
		FinalCategory:   in.Consensus.WinningCategory,
		FinalConfidence: in.CalibratedConfidence,
		Reasoning:       r,
	}
}

func (s *Scorer) reject(in Input) Result {
	tags := make([]string, 0, len(in.Safety.Violations))
	for _, v := range in.Safety.Violations {
		tags = append(tags, string(v))
	}

	override := fmt.Sprintf("content safety rejection at %s layer", in.Safety.LayerReached)
	if len(tags) > 0 {
		override += ": " + strings.Join(tags, ", ")
	}
	if !in.Safety.ChildSafe {
		override += " (not child safe)"
	}

	r := Reasoning{
		Summary:   "review required: content failed safety validation",
		Threshold: s.cfg.Threshold,
		Override:  override,
	}
	if in.Safety.Degraded {
		r.AddNote("safety check degraded: %s unavailable", joinLayers(in.Safety.DegradedLayers))
	}

	return Result{
		RequiresReview: true,
		FinalCategory:  category.Unsafe,
		Reasoning:      r,
	}
}

func factor(name string, weight, value float64) Factor {
	value = min(max(value, 0), 1)
	return Factor{
		Name:         name,
		Weight:       weight,
		Value:        value,
		Contribution: weight * value,
	}
}

func weakestFactor(factors []Factor) Factor {
	weakest := factors[0]
	for _, f := range factors[1:] {
		if f.Weight > 0 && f.Weight-f.Contribution > weakest.Weight-weakest.Contribution {
			weakest = f
		}
	}
	return weakest
}

func joinLayers(layers []safety.Layer) string {
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}
