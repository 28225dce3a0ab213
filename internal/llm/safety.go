package llm

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/JaimeStill/arbiter/internal/prompts"
	"github.com/JaimeStill/arbiter/internal/safety"
	"github.com/JaimeStill/arbiter/pkg/formatting"
)

// Older prompt libraries return free-text violations and tag names under
// categories. Both are accepted.
type semanticResponse struct {
	IsSafe       bool     `json:"is_safe"`
	SafetyScore  float64  `json:"safety_score"`
	Violations   []string `json:"violations"`
	Categories   []string `json:"categories"`
	Severity     string   `json:"severity"`
	Descriptions []string `json:"descriptions"`
	Reasoning    string   `json:"reasoning"`
}

type childResponse struct {
	AgeRating            string   `json:"age_rating"`
	AgeAppropriate       string   `json:"age_appropriate"`
	IsChildSafe          *bool    `json:"is_child_safe"`
	CollectsPersonalInfo bool     `json:"collects_personal_info"`
	EndangermentRisk     bool     `json:"endangerment_risk"`
	Concerns             []string `json:"concerns"`
	Reason               string   `json:"reason"`
}

// SafetyChecker backs the semantic and child-safety layers with a model.
// It satisfies safety.SemanticChecker and safety.ChildChecker.
type SafetyChecker struct {
	provider  Provider
	library   *prompts.Library
	maxTokens int
	logger    *slog.Logger
}

// NewSafetyChecker creates a SafetyChecker. A nil library uses the built-in
// prompts.
func NewSafetyChecker(p Provider, lib *prompts.Library, maxTokens int, logger *slog.Logger) *SafetyChecker {
	if lib == nil {
		lib = prompts.Default()
	}
	return &SafetyChecker{
		provider:  p,
		library:   lib,
		maxTokens: maxTokens,
		logger:    logger.With("system", "safety-model"),
	}
}

// CheckSemantic asks the model for a taxonomy-wide safety assessment.
func (c *SafetyChecker) CheckSemantic(ctx context.Context, content string) (safety.SemanticAssessment, error) {
	resp, err := complete[semanticResponse](ctx, c, prompts.StageSemanticSafety, content)
	if err != nil {
		return safety.SemanticAssessment{}, err
	}

	a := safety.SemanticAssessment{
		IsSafe:       resp.IsSafe,
		SafetyScore:  resp.SafetyScore,
		Descriptions: resp.Descriptions,
		Reasoning:    resp.Reasoning,
	}

	for _, v := range append(resp.Violations, resp.Categories...) {
		tag, err := safety.ParseTag(v)
		if err != nil {
			a.Descriptions = append(a.Descriptions, v)
			continue
		}
		if !slices.Contains(a.Violations, tag) {
			a.Violations = append(a.Violations, tag)
		}
	}

	sev, err := safety.ParseSeverity(resp.Severity)
	if err != nil {
		c.logger.Warn("unrecognized severity", "severity", resp.Severity)
		sev = safety.SeverityNone
	}
	if !a.IsSafe && sev == safety.SeverityNone {
		sev = safety.SeverityMedium
	}
	a.Severity = sev

	return a, nil
}

// CheckChild asks the model whether content is appropriate for children.
func (c *SafetyChecker) CheckChild(ctx context.Context, content string) (safety.ChildAssessment, error) {
	resp, err := complete[childResponse](ctx, c, prompts.StageChildSafety, content)
	if err != nil {
		return safety.ChildAssessment{}, err
	}

	rating := resp.AgeRating
	if rating == "" {
		rating = resp.AgeAppropriate
	}

	var age safety.AgeRating
	switch {
	case rating != "":
		age, err = safety.ParseAgeRating(rating)
		if err != nil {
			return safety.ChildAssessment{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
	case resp.IsChildSafe != nil && !*resp.IsChildSafe:
		age = safety.Adult
	default:
		age = safety.AllAges
	}

	return safety.ChildAssessment{
		AgeRating:            age,
		CollectsPersonalInfo: resp.CollectsPersonalInfo,
		EndangermentRisk:     resp.EndangermentRisk,
		Concerns:             resp.Concerns,
		Reason:               resp.Reason,
		Unsafe:               resp.IsChildSafe != nil && !*resp.IsChildSafe,
	}, nil
}

func complete[T any](ctx context.Context, c *SafetyChecker, stage prompts.Stage, content string) (T, error) {
	var zero T

	system, err := c.library.Compose(stage)
	if err != nil {
		return zero, err
	}

	raw, err := c.provider.Complete(
		ctx,
		system,
		prompts.ContentInput(content),
		c.maxTokens,
		c.library.Temperature(stage, 0),
	)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", stage, err)
	}

	out, err := formatting.Parse[T](raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrInvalidResponse, stage, err)
	}
	return out, nil
}
