// Package accuracy tracks per-category precision, recall, and F1 along with
// a full confusion matrix as ground truth arrives. The aggregate is owned by
// a Tracker instance and only ever grows.
package accuracy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/pkg/repository"
)

const binCount = 11

type counts struct {
	tp, fp, fn int
}

type bin struct {
	samples       int
	correct       int
	confidenceSum float64
}

// Cell addresses one (predicted, actual) pair of the confusion matrix.
type Cell struct {
	Predicted category.Category
	Actual    category.Category
}

// Tracker owns the running accuracy aggregate. Writes are serialized and
// journaled before they become visible; reads observe a consistent
// point-in-time view.
type Tracker struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	journal Journal
	now     func() time.Time

	counts       map[category.Category]*counts
	confusion    map[Cell]int
	bins         [binCount]bin
	predictions  int
	autoApproved int
	observations int
	correct      int
	corrections  int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithJournal persists every update through j.
func WithJournal(j Journal) Option {
	return func(t *Tracker) {
		t.journal = j
	}
}

// WithClock overrides the timestamp source for journal entries.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		now:       time.Now,
		counts:    make(map[category.Category]*counts),
		confusion: make(map[Cell]int),
	}
	for _, c := range category.All() {
		t.counts[c] = &counts{}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore replays the journal into the in-memory aggregate. It is intended
// to run once at startup before the tracker serves traffic.
func (t *Tracker) Restore(ctx context.Context) (int, error) {
	if t.journal == nil {
		return 0, nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	n := 0
	err := t.journal.Replay(ctx, func(e Entry) error {
		if err := validateEntry(e); err != nil {
			return err
		}
		t.mu.Lock()
		t.apply(e)
		t.mu.Unlock()
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("%w: replay: %w", ErrJournal, err)
	}
	return n, nil
}

// Record ingests a prediction whose actual category is known. A match
// increments the true positives of actual; a miss increments the false
// positives of predicted and the false negatives of actual.
func (t *Tracker) Record(ctx context.Context, predicted, actual category.Category, confidence float64) error {
	return t.commit(ctx, Entry{
		Kind:       KindObservation,
		Predicted:  predicted,
		Actual:     actual,
		Confidence: confidence,
	})
}

// RecordDecision counts a fully scored decision. It does not touch the
// per-category counters because ground truth is not yet known.
func (t *Tracker) RecordDecision(ctx context.Context, predicted category.Category, confidence float64, autoApproved bool) error {
	return t.commit(ctx, Entry{
		Kind:         KindDecision,
		Predicted:    predicted,
		Confidence:   confidence,
		AutoApproved: autoApproved,
	})
}

// RecordCorrection ingests a human review outcome. It is recorded as an
// observation of (original, corrected) and, when the reviewer changed the
// category, counted as a correction.
func (t *Tracker) RecordCorrection(ctx context.Context, original, corrected category.Category, confidence float64) error {
	return t.commit(ctx, Entry{
		Kind:       KindCorrection,
		Predicted:  original,
		Actual:     corrected,
		Confidence: confidence,
	})
}

// Staged is a journaled update whose effect on the aggregate waits for the
// caller's transaction to commit.
type Staged struct {
	t    *Tracker
	e    Entry
	once sync.Once
}

// Apply makes the staged update visible. Calls after the first do nothing.
func (s *Staged) Apply() {
	s.once.Do(func() {
		s.t.mu.Lock()
		s.t.apply(s.e)
		s.t.mu.Unlock()
	})
}

// StageCorrection journals a correction through exec without touching the
// aggregate. The caller applies the returned update after exec's
// transaction commits and drops it on rollback. The tracker's journal must
// implement TxJournal.
func (t *Tracker) StageCorrection(ctx context.Context, exec repository.Executor, original, corrected category.Category, confidence float64) (*Staged, error) {
	e := Entry{
		Kind:       KindCorrection,
		Predicted:  original,
		Actual:     corrected,
		Confidence: confidence,
	}
	if err := validateEntry(e); err != nil {
		return nil, err
	}

	var txj TxJournal
	if t.journal != nil {
		var ok bool
		if txj, ok = t.journal.(TxJournal); !ok {
			return nil, ErrTxUnsupported
		}
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.RecordedAt = t.now().UTC()

	if txj != nil {
		if err := txj.AppendTx(ctx, exec, e); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %w", ErrJournal, err)
		}
	}
	return &Staged{t: t, e: e}, nil
}

func (t *Tracker) commit(ctx context.Context, e Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	e.RecordedAt = t.now().UTC()

	if t.journal != nil {
		if err := t.journal.Append(ctx, e); err != nil {
			return fmt.Errorf("%w: %w", ErrJournal, err)
		}
	}

	t.mu.Lock()
	t.apply(e)
	t.mu.Unlock()
	return nil
}

func (t *Tracker) apply(e Entry) {
	switch e.Kind {
	case KindDecision:
		t.predictions++
		if e.AutoApproved {
			t.autoApproved++
		}
	case KindObservation, KindCorrection:
		t.observe(e.Predicted, e.Actual, e.Confidence)
		if e.Kind == KindCorrection && e.Predicted != e.Actual {
			t.corrections++
		}
	}
}

func (t *Tracker) observe(predicted, actual category.Category, confidence float64) {
	hit := predicted == actual
	if hit {
		t.counts[actual].tp++
		t.correct++
	} else {
		t.counts[predicted].fp++
		t.counts[actual].fn++
	}
	t.confusion[Cell{Predicted: predicted, Actual: actual}]++
	t.observations++

	b := &t.bins[binIndex(confidence)]
	b.samples++
	b.confidenceSum += confidence
	if hit {
		b.correct++
	}
}

// Precision returns TP/(TP+FP) for c, or 0 when nothing was predicted as c.
func (t *Tracker) Precision(c category.Category) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statsLocked(c).Precision
}

// Recall returns TP/(TP+FN) for c, or 0 when c never occurred.
func (t *Tracker) Recall(c category.Category) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statsLocked(c).Recall
}

// F1 returns the harmonic mean of precision and recall for c, or 0 when both are 0.
func (t *Tracker) F1(c category.Category) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statsLocked(c).F1
}

// MacroF1 returns the unweighted mean F1 across every category.
func (t *Tracker) MacroF1() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.macroF1Locked()
}

// Observations returns the number of ground-truth observations in which c
// was the predicted category, the denominator of its precision.
func (t *Tracker) Observations(c category.Category) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n, ok := t.counts[c]; ok {
		return n.tp + n.fp
	}
	return 0
}

// Stats returns the current counters and derived metrics for c.
func (t *Tracker) Stats(c category.Category) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statsLocked(c)
}

// Cell returns the confusion-matrix count for (predicted, actual).
func (t *Tracker) Cell(predicted, actual category.Category) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.confusion[Cell{Predicted: predicted, Actual: actual}]
}

func (t *Tracker) statsLocked(c category.Category) Stats {
	n, ok := t.counts[c]
	if !ok {
		return Stats{Category: c}
	}

	s := Stats{
		Category:       c,
		TruePositives:  n.tp,
		FalsePositives: n.fp,
		FalseNegatives: n.fn,
		Precision:      ratio(n.tp, n.tp+n.fp),
		Recall:         ratio(n.tp, n.tp+n.fn),
	}
	if sum := s.Precision + s.Recall; sum > 0 {
		s.F1 = 2 * s.Precision * s.Recall / sum
	}
	return s
}

func (t *Tracker) macroF1Locked() float64 {
	all := category.All()
	var sum float64
	for _, c := range all {
		sum += t.statsLocked(c).F1
	}
	return sum / float64(len(all))
}

func validateEntry(e Entry) error {
	switch e.Kind {
	case KindDecision:
		if !e.Predicted.Valid() {
			return fmt.Errorf("%w: predicted %q", ErrInvalidObservation, e.Predicted)
		}
	case KindObservation, KindCorrection:
		if !e.Predicted.Valid() || !e.Actual.Valid() {
			return fmt.Errorf("%w: %q -> %q", ErrInvalidObservation, e.Predicted, e.Actual)
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidObservation, e.Kind)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v", ErrInvalidObservation, e.Confidence)
	}
	return nil
}

func binIndex(confidence float64) int {
	return min(max(int(confidence*10), 0), binCount-1)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
