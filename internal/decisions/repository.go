package decisions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JaimeStill/arbiter/internal/documents"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/internal/notify"
	"github.com/JaimeStill/arbiter/pkg/middleware"
	"github.com/JaimeStill/arbiter/pkg/pagination"
	"github.com/JaimeStill/arbiter/pkg/query"
	"github.com/JaimeStill/arbiter/pkg/repository"
)

const anonymousReviewer = "anonymous"

type repo struct {
	db         *sql.DB
	engine     Engine
	content    ContentSource
	notifier   notify.Notifier
	validate   *validator.Validate
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a decision repository implementing the System interface.
// A nil notifier disables review notifications.
func New(
	db *sql.DB,
	eng Engine,
	content ContentSource,
	notifier notify.Notifier,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &repo{
		db:         db,
		engine:     eng,
		content:    content,
		notifier:   notifier,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger.With("system", "decisions"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Decision], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count decisions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDecision)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Decision, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDecision)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) FindByDocument(ctx context.Context, documentID uuid.UUID) (*Decision, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("DocumentID", documentID).
		BuildPage(1, 1)

	items, err := repository.QueryMany(ctx, r.db, q, args, scanDecision)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

func (r *repo) Classify(ctx context.Context, documentID uuid.UUID, cmd ClassifyCommand) (*Decision, error) {
	if err := r.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	content, err := r.content.Content(ctx, documentID)
	if err != nil {
		return nil, err
	}

	d, err := r.engine.Classify(ctx, engine.Request{
		DocumentID: documentID.String(),
		Content:    content,
		Drafts:     cmd.Drafts,
	})
	if err != nil {
		return nil, fmt.Errorf("classify document %s: %w", documentID, err)
	}

	return r.persist(ctx, documentID, d)
}

func (r *repo) ClassifyBatch(ctx context.Context, cmd BatchCommand) ([]BatchResult, error) {
	if err := r.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	results := make([]BatchResult, len(cmd.DocumentIDs))
	reqs := make([]engine.Request, 0, len(cmd.DocumentIDs))
	slots := make([]int, 0, len(cmd.DocumentIDs))

	for i, id := range cmd.DocumentIDs {
		results[i].DocumentID = id
		content, err := r.content.Content(ctx, id)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		reqs = append(reqs, engine.Request{DocumentID: id.String(), Content: content})
		slots = append(slots, i)
	}

	for j, br := range r.engine.ClassifyBatch(ctx, reqs) {
		i := slots[j]
		if br.Err != nil {
			results[i].Error = br.Err.Error()
			continue
		}
		d, err := r.persist(ctx, results[i].DocumentID, br.Decision)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Decision = d
	}

	return results, nil
}

func (r *repo) Correct(ctx context.Context, id uuid.UUID, cmd CorrectionCommand) (*CorrectionOutcome, error) {
	if err := r.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	d, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	reviewer := reviewerFor(ctx, cmd)

	insertQ := `
		INSERT INTO corrections(
			decision_id, document_id, original_category, corrected_category,
			reviewer, reviewer_note
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, decision_id, document_id, original_category, corrected_category,
				  reviewer, reviewer_note, corrected_at`

	insert := []any{
		d.ID,
		d.DocumentID,
		string(d.FinalCategory),
		string(cmd.Category),
		reviewer,
		cmd.Note,
	}

	type staged struct {
		correction Correction
		pending    *engine.PendingCorrection
	}

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (staged, error) {
		c, err := repository.QueryOne(ctx, tx, insertQ, insert, scanCorrection)
		if err != nil {
			return staged{}, repository.MapError(err, ErrNotFound, ErrAlreadyCorrected)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2",
			documents.StatusComplete, d.DocumentID,
		); err != nil {
			return staged{}, fmt.Errorf("update document status: %w", repository.MapError(err, documents.ErrNotFound, ErrDuplicate))
		}

		pending, err := r.engine.StageCorrection(ctx, tx, engine.Correction{
			DocumentID: d.DocumentID.String(),
			Original:   d.FinalCategory,
			Corrected:  cmd.Category,
			Confidence: d.FinalConfidence,
			Reviewer:   reviewer,
			Note:       cmd.Note,
		})
		if err != nil {
			return staged{}, err
		}

		return staged{correction: c, pending: pending}, nil
	})
	if err != nil {
		return nil, err
	}

	outcome := CorrectionOutcome{
		Correction: st.correction,
		Result:     st.pending.Commit(ctx),
	}

	r.logger.InfoContext(ctx, "correction recorded",
		"decision_id", d.ID,
		"document_id", d.DocumentID,
		"original", outcome.Correction.OriginalCategory,
		"corrected", outcome.Correction.CorrectedCategory,
		"reviewer", reviewer,
	)
	return &outcome, nil
}

func (r *repo) Corrections(ctx context.Context, id uuid.UUID) ([]Correction, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	q, args := query.
		NewBuilder(correctionProjection, correctionSort).
		WhereEquals("DecisionID", id).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanCorrection)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	if items == nil {
		items = []Correction{}
	}
	return items, nil
}

func (r *repo) persist(ctx context.Context, documentID uuid.UUID, ed *engine.Decision) (*Decision, error) {
	args, err := insertArgs(documentID, ed)
	if err != nil {
		return nil, err
	}

	insertQ := `
		INSERT INTO decisions(
			document_id, final_category, raw_confidence, final_confidence,
			requires_review, auto_approval_score, agreed, agreement_strength,
			is_safe, degraded, reasoning, consensus, calibration, safety,
			citations, drafts, decided_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + decisionColumns

	status := documents.StatusApproved
	if ed.RequiresReview {
		status = documents.StatusReview
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Decision, error) {
		d, err := repository.QueryOne(ctx, tx, insertQ, args, scanDecision)
		if err != nil {
			return Decision{}, fmt.Errorf("insert decision: %w", err)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2",
			status, documentID,
		); err != nil {
			return Decision{}, fmt.Errorf("update document status: %w", err)
		}

		return d, nil
	})
	if err != nil {
		return nil, repository.MapError(err, documents.ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "decision stored",
		"id", d.ID,
		"document_id", documentID,
		"category", d.FinalCategory,
		"requires_review", d.RequiresReview,
	)

	if err := r.notifier.ReviewRequired(ctx, ed); err != nil {
		r.logger.WarnContext(ctx, "review notification failed",
			"document_id", documentID,
			"error", err,
		)
	}

	return &d, nil
}

func reviewerFor(ctx context.Context, cmd CorrectionCommand) string {
	if sub, ok := middleware.Subject(ctx); ok {
		return sub
	}
	if cmd.Reviewer != "" {
		return cmd.Reviewer
	}
	return anonymousReviewer
}
