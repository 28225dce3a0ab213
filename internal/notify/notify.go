// Package notify alerts reviewers when a decision cannot be auto-approved.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/JaimeStill/arbiter/internal/engine"
)

// Notifier announces decisions that need human review.
type Notifier interface {
	ReviewRequired(ctx context.Context, d *engine.Decision) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) ReviewRequired(context.Context, *engine.Decision) error { return nil }

// Poster is the subset of the Slack client used to post messages.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts review requests to a channel.
type Slack struct {
	poster    Poster
	channel   string
	reviewURL string
	logger    *slog.Logger
}

// NewSlack creates a Slack notifier. reviewURL, when set, is a format
// string receiving the document ID and is linked from each message.
func NewSlack(poster Poster, channel, reviewURL string, logger *slog.Logger) *Slack {
	return &Slack{
		poster:    poster,
		channel:   channel,
		reviewURL: reviewURL,
		logger:    logger.With("system", "notify"),
	}
}

// ReviewRequired posts a review request. Decisions that were auto-approved
// are ignored.
func (s *Slack) ReviewRequired(ctx context.Context, d *engine.Decision) error {
	if d == nil || !d.RequiresReview {
		return nil
	}

	_, ts, err := s.poster.PostMessageContext(
		ctx,
		s.channel,
		slack.MsgOptionText(fallbackText(d), false),
		slack.MsgOptionBlocks(s.blocks(d)...),
	)
	if err != nil {
		return fmt.Errorf("post review request for %s: %w", d.DocumentID, err)
	}

	s.logger.Info("review requested", "document_id", d.DocumentID, "channel", s.channel, "ts", ts)
	return nil
}

func fallbackText(d *engine.Decision) string {
	return fmt.Sprintf("Review required: %s classified %s (score %.3f)", d.DocumentID, d.FinalCategory, d.AutoApprovalScore)
}

func (s *Slack) blocks(d *engine.Decision) []slack.Block {
	header := slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, "Review required: "+d.DocumentID, false, false),
	)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Category*\n%s", d.FinalCategory), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Confidence*\n%.1f%%", d.FinalConfidence*100), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Auto-approval score*\n%.3f / %.2f", d.AutoApprovalScore, d.Reasoning.Threshold), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Safe*\n%t", d.Safety.IsSafe), false, false),
	}

	blocks := []slack.Block{
		header,
		slack.NewSectionBlock(nil, fields, nil),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, summary(d), false, false),
			nil, nil,
		),
	}

	if s.reviewURL != "" {
		link := fmt.Sprintf(s.reviewURL, d.DocumentID)
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("<%s|Open in review queue>", link), false, false),
		))
	}

	return blocks
}

func summary(d *engine.Decision) string {
	var b strings.Builder
	b.WriteString(d.Reasoning.Summary)
	if d.Reasoning.Override != "" {
		fmt.Fprintf(&b, "\n_Override:_ %s", d.Reasoning.Override)
	}
	for _, n := range d.Reasoning.Notes {
		fmt.Fprintf(&b, "\n• %s", n)
	}
	return b.String()
}
