package accuracy

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JaimeStill/arbiter/pkg/repository"
)

type postgresJournal struct {
	db *sql.DB
}

// NewPostgresJournal creates a Journal backed by the accuracy_journal table.
func NewPostgresJournal(db *sql.DB) TxJournal {
	return &postgresJournal{db: db}
}

func (j *postgresJournal) Append(ctx context.Context, e Entry) error {
	return j.AppendTx(ctx, j.db, e)
}

// AppendTx writes e through exec, which is usually an open *sql.Tx.
func (j *postgresJournal) AppendTx(ctx context.Context, exec repository.Executor, e Entry) error {
	q := `
		INSERT INTO accuracy_journal(kind, predicted, actual, confidence, auto_approved, recorded_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`

	if _, err := exec.ExecContext(
		ctx, q,
		string(e.Kind),
		string(e.Predicted),
		string(e.Actual),
		e.Confidence,
		e.AutoApproved,
		e.RecordedAt,
	); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (j *postgresJournal) Replay(ctx context.Context, fn func(Entry) error) error {
	q := `
		SELECT kind, predicted, COALESCE(actual, ''), confidence, auto_approved, recorded_at
		FROM accuracy_journal
		ORDER BY seq`

	entries, err := repository.QueryMany(ctx, j.db, q, nil, scanEntry)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var e Entry
	err := s.Scan(
		&e.Kind,
		&e.Predicted,
		&e.Actual,
		&e.Confidence,
		&e.AutoApproved,
		&e.RecordedAt,
	)
	return e, err
}
