package accuracy

import (
	"context"
	"time"

	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/pkg/repository"
)

// Kind identifies the type of update captured in a journal entry.
type Kind string

const (
	// KindDecision records a scored decision before ground truth is known.
	KindDecision Kind = "decision"
	// KindObservation records a prediction paired with its actual category.
	KindObservation Kind = "observation"
	// KindCorrection records a human review outcome for a prior decision.
	KindCorrection Kind = "correction"
)

// Entry is a single append-only update to the accuracy state.
type Entry struct {
	Kind         Kind              `json:"kind"`
	Predicted    category.Category `json:"predicted"`
	Actual       category.Category `json:"actual,omitempty"`
	Confidence   float64           `json:"confidence"`
	AutoApproved bool              `json:"auto_approved"`
	RecordedAt   time.Time         `json:"recorded_at"`
}

// Journal persists tracker updates so the aggregate survives restarts.
// Append must be durable before it returns; Replay yields entries in the
// order they were appended.
type Journal interface {
	Append(ctx context.Context, e Entry) error
	Replay(ctx context.Context, fn func(Entry) error) error
}

// TxJournal is a Journal that can append inside a caller's transaction, so
// an entry and the caller's own writes commit or roll back together.
type TxJournal interface {
	Journal
	AppendTx(ctx context.Context, exec repository.Executor, e Entry) error
}
