package decisions

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/pkg/query"
	"github.com/JaimeStill/arbiter/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "decisions", "dc").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("final_category", "FinalCategory").
	Project("raw_confidence", "RawConfidence").
	Project("final_confidence", "FinalConfidence").
	Project("requires_review", "RequiresReview").
	Project("auto_approval_score", "AutoApprovalScore").
	Project("agreed", "Agreed").
	Project("agreement_strength", "AgreementStrength").
	Project("is_safe", "IsSafe").
	Project("degraded", "Degraded").
	Project("reasoning", "Reasoning").
	Project("consensus", "Consensus").
	Project("calibration", "Calibration").
	Project("safety", "Safety").
	Project("citations", "Citations").
	Project("drafts", "Drafts").
	Project("decided_at", "DecidedAt")

const decisionColumns = `id, document_id, final_category, raw_confidence, final_confidence,
		requires_review, auto_approval_score, agreed, agreement_strength, is_safe,
		degraded, reasoning, consensus, calibration, safety, citations, drafts, decided_at`

var defaultSort = query.SortField{
	Field:      "DecidedAt",
	Descending: true,
}

var correctionProjection = query.
	NewProjectionMap("public", "corrections", "co").
	Project("id", "ID").
	Project("decision_id", "DecisionID").
	Project("document_id", "DocumentID").
	Project("original_category", "OriginalCategory").
	Project("corrected_category", "CorrectedCategory").
	Project("reviewer", "Reviewer").
	Project("reviewer_note", "ReviewerNote").
	Project("corrected_at", "CorrectedAt")

var correctionSort = query.SortField{
	Field:      "CorrectedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for decision queries.
// Nil fields are ignored. DecidedAfter and DecidedBefore bound DecidedAt;
// every other field matches exactly.
type Filters struct {
	FinalCategory  *category.Category `json:"final_category,omitempty"`
	RequiresReview *bool              `json:"requires_review,omitempty"`
	IsSafe         *bool              `json:"is_safe,omitempty"`
	Degraded       *bool              `json:"degraded,omitempty"`
	DocumentID     *uuid.UUID         `json:"document_id,omitempty"`
	DecidedAfter   *time.Time         `json:"decided_after,omitempty"`
	DecidedBefore  *time.Time         `json:"decided_before,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var cat *string
	if f.FinalCategory != nil {
		s := string(*f.FinalCategory)
		cat = &s
	}

	return b.
		WhereEquals("FinalCategory", cat).
		WhereEquals("RequiresReview", f.RequiresReview).
		WhereEquals("IsSafe", f.IsSafe).
		WhereEquals("Degraded", f.Degraded).
		WhereEquals("DocumentID", f.DocumentID).
		WhereRange("DecidedAt", f.DecidedAfter, f.DecidedBefore)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable values are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("final_category"); c != "" {
		if cat, err := category.Parse(c); err == nil {
			f.FinalCategory = &cat
		}
	}

	f.RequiresReview = parseBool(values.Get("requires_review"))
	f.IsSafe = parseBool(values.Get("is_safe"))
	f.Degraded = parseBool(values.Get("degraded"))

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	f.DecidedAfter = parseTime(values.Get("decided_after"))
	f.DecidedBefore = parseTime(values.Get("decided_before"))

	return f
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseBool(s string) *bool {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &v
}

func insertArgs(documentID uuid.UUID, d *engine.Decision) ([]any, error) {
	var (
		agreed   bool
		strength float64
	)
	if d.Consensus != nil {
		agreed = d.Consensus.Agreed
		strength = d.Consensus.AgreementStrength
	}

	jsonCols := []struct {
		name  string
		value any
	}{
		{"reasoning", d.Reasoning},
		{"consensus", d.Consensus},
		{"calibration", d.Calibration},
		{"safety", d.Safety},
		{"citations", d.Citations},
		{"drafts", d.Drafts},
	}

	encoded := make([]any, len(jsonCols))
	for i, c := range jsonCols {
		data, err := json.Marshal(c.value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", c.name, err)
		}
		encoded[i] = data
	}

	args := []any{
		documentID,
		string(d.FinalCategory),
		d.RawConfidence,
		d.FinalConfidence,
		d.RequiresReview,
		d.AutoApprovalScore,
		agreed,
		strength,
		d.Safety.IsSafe,
		d.Safety.Degraded,
	}
	args = append(args, encoded...)
	return append(args, d.DecidedAt), nil
}

func scanDecision(s repository.Scanner) (Decision, error) {
	var d Decision
	var (
		reasoningRaw   []byte
		consensusRaw   []byte
		calibrationRaw []byte
		safetyRaw      []byte
		citationsRaw   []byte
		draftsRaw      []byte
	)

	err := s.Scan(
		&d.ID,
		&d.DocumentID,
		&d.FinalCategory,
		&d.RawConfidence,
		&d.FinalConfidence,
		&d.RequiresReview,
		&d.AutoApprovalScore,
		&d.Agreed,
		&d.AgreementStrength,
		&d.IsSafe,
		&d.Degraded,
		&reasoningRaw,
		&consensusRaw,
		&calibrationRaw,
		&safetyRaw,
		&citationsRaw,
		&draftsRaw,
		&d.DecidedAt,
	)
	if err != nil {
		return d, err
	}

	cols := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"reasoning", reasoningRaw, &d.Reasoning},
		{"consensus", consensusRaw, &d.Consensus},
		{"calibration", calibrationRaw, &d.Calibration},
		{"safety", safetyRaw, &d.Safety},
		{"citations", citationsRaw, &d.Citations},
		{"drafts", draftsRaw, &d.Drafts},
	}
	for _, c := range cols {
		if len(c.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(c.raw, c.dst); err != nil {
			return d, fmt.Errorf("unmarshal %s: %w", c.name, err)
		}
	}

	if d.Citations == nil {
		d.Citations = []citations.Resolved{}
	}

	return d, nil
}

func scanCorrection(s repository.Scanner) (Correction, error) {
	var c Correction
	err := s.Scan(
		&c.ID,
		&c.DecisionID,
		&c.DocumentID,
		&c.OriginalCategory,
		&c.CorrectedCategory,
		&c.Reviewer,
		&c.ReviewerNote,
		&c.CorrectedAt,
	)
	return c, err
}
