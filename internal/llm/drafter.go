package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/internal/consensus"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/internal/prompts"
	"github.com/JaimeStill/arbiter/pkg/formatting"
)

// ErrInvalidResponse is returned when a model response parses but does not
// carry a usable verdict.
var ErrInvalidResponse = errors.New("invalid model response")

type draftResponse struct {
	Category      string   `json:"category"`
	Confidence    float64  `json:"confidence"`
	Reasoning     string   `json:"reasoning"`
	CitedExcerpts []string `json:"cited_excerpts"`
}

// Drafter produces draft verdicts from a model. It satisfies engine.Drafter.
type Drafter struct {
	provider  Provider
	library   *prompts.Library
	maxTokens int
	logger    *slog.Logger
}

// NewDrafter creates a Drafter. A nil library uses the built-in prompts.
func NewDrafter(p Provider, lib *prompts.Library, maxTokens int, logger *slog.Logger) *Drafter {
	if lib == nil {
		lib = prompts.Default()
	}
	return &Drafter{
		provider:  p,
		library:   lib,
		maxTokens: maxTokens,
		logger:    logger.With("system", "drafter"),
	}
}

// Draft runs one classification pass at the requested temperature.
func (d *Drafter) Draft(ctx context.Context, req engine.DraftRequest) (consensus.Draft, error) {
	system, err := d.library.Compose(prompts.StageClassify)
	if err != nil {
		return consensus.Draft{}, err
	}
	user := prompts.ClassifyInput(req.DocumentID, req.Content.Annotated(), req.PassIndex)

	raw, err := d.provider.Complete(ctx, system, user, d.maxTokens, req.Temperature)
	if err != nil {
		return consensus.Draft{}, fmt.Errorf("pass %d: %w", req.PassIndex, err)
	}

	resp, err := formatting.Parse[draftResponse](raw)
	if err != nil {
		return consensus.Draft{}, fmt.Errorf("%w: pass %d: %w", ErrInvalidResponse, req.PassIndex, err)
	}

	c, err := category.Parse(resp.Category)
	if err != nil {
		return consensus.Draft{}, fmt.Errorf("%w: pass %d: %w", ErrInvalidResponse, req.PassIndex, err)
	}

	draft := consensus.Draft{
		Category:      c,
		RawConfidence: resp.Confidence,
		Reasoning:     strings.TrimSpace(resp.Reasoning),
		CitedExcerpts: excerpts(resp.CitedExcerpts),
		PassIndex:     req.PassIndex,
		Temperature:   req.Temperature,
	}
	if err := draft.Validate(); err != nil {
		return consensus.Draft{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	d.logger.Debug(
		"draft produced",
		"document_id", req.DocumentID,
		"pass", req.PassIndex,
		"category", draft.Category,
		"confidence", draft.RawConfidence,
		"excerpts", len(draft.CitedExcerpts),
	)

	return draft, nil
}

func excerpts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
