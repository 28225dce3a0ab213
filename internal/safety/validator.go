// Package safety runs layered content-safety validation. Layers execute in a
// fixed order (pattern, semantic, child safety) and fold into a worst-so-far
// verdict: a later layer can add violations or lower the score but can
// never clear what an earlier layer raised.
package safety

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Validator errors.
var (
	ErrLayerUnavailable = errors.New("safety layer unavailable")
	ErrMissingChecker   = errors.New("enabled safety layer has no checker")
)

// SemanticAssessment is the model-assisted deep check over the taxonomy.
type SemanticAssessment struct {
	IsSafe       bool     `json:"is_safe"`
	SafetyScore  float64  `json:"safety_score"`
	Violations   []Tag    `json:"violations"`
	Severity     Severity `json:"severity"`
	Descriptions []string `json:"descriptions"`
	Reasoning    string   `json:"reasoning"`
}

// ChildAssessment is the dedicated child-safety check.
type ChildAssessment struct {
	AgeRating            AgeRating `json:"age_rating"`
	CollectsPersonalInfo bool      `json:"collects_personal_info"`
	EndangermentRisk     bool      `json:"endangerment_risk"`
	Concerns             []string  `json:"concerns"`
	Reason               string    `json:"reason"`
	// Unsafe is an explicit verdict that content is not safe for children,
	// independent of the age rating.
	Unsafe               bool      `json:"unsafe,omitempty"`
}

// Positive reports whether the assessment contains any finding that makes
// content unsafe for children.
func (a ChildAssessment) Positive() bool {
	return a.Unsafe || a.CollectsPersonalInfo || a.EndangermentRisk || a.AgeRating == Adult
}

// SemanticChecker performs the semantic layer's model call.
type SemanticChecker interface {
	CheckSemantic(ctx context.Context, content string) (SemanticAssessment, error)
}

// ChildChecker performs the child-safety layer's model call.
type ChildChecker interface {
	CheckChild(ctx context.Context, content string) (ChildAssessment, error)
}

// Config enables layers and bounds the content sent to model-backed layers.
type Config struct {
	Pattern       bool
	Semantic      bool
	ChildSafety   bool
	SemanticLimit int
	ChildLimit    int
}

// DefaultConfig enables every layer.
func DefaultConfig() Config {
	return Config{
		Pattern:       true,
		Semantic:      true,
		ChildSafety:   true,
		SemanticLimit: 5000,
		ChildLimit:    3000,
	}
}

// Finding is one layer's description of a violation.
type Finding struct {
	Layer       Layer    `json:"layer"`
	Tag         Tag      `json:"tag,omitempty"`
	Description string   `json:"description"`
	Matches     []string `json:"matches,omitempty"`
}

// Verdict is the aggregated outcome of every layer that ran.
type Verdict struct {
	IsSafe          bool      `json:"is_safe"`
	ChildSafe       bool      `json:"child_safe"`
	SafetyScore     float64   `json:"safety_score"`
	Violations      []Tag     `json:"violations"`
	Severity        Severity  `json:"severity"`
	AgeRating       AgeRating `json:"age_rating,omitempty"`
	LayerReached    Layer     `json:"layer_reached,omitempty"`
	Degraded        bool      `json:"degraded"`
	DegradedLayers  []Layer   `json:"degraded_layers,omitempty"`
	Findings        []Finding `json:"findings,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// Safe returns the verdict for content that was not checked by any layer.
func Safe() Verdict {
	return Verdict{
		IsSafe:      true,
		ChildSafe:   true,
		SafetyScore: 1,
		Violations:  []Tag{},
	}
}

// HasViolation reports whether t was raised by any layer.
func (v Verdict) HasViolation(t Tag) bool {
	return slices.Contains(v.Violations, t)
}

// layerResult is the contribution of a single layer.
type layerResult struct {
	layer      Layer
	unsafe     bool
	childRisk  bool
	score      float64
	severity   Severity
	violations []Tag
	findings   []Finding
	ageRating  AgeRating
}

type accumulator struct {
	v Verdict
}

func newAccumulator() *accumulator {
	return &accumulator{v: Safe()}
}

func (a *accumulator) fold(r layerResult) {
	a.v.LayerReached = r.layer
	if r.unsafe {
		a.v.IsSafe = false
	}
	if r.childRisk {
		a.v.ChildSafe = false
		a.v.IsSafe = false
	}
	a.v.SafetyScore = min(a.v.SafetyScore, clampScore(r.score))
	a.v.Severity = max(a.v.Severity, r.severity)

	for _, t := range r.violations {
		if !slices.Contains(a.v.Violations, t) {
			a.v.Violations = append(a.v.Violations, t)
		}
	}
	if a.v.HasViolation(ChildSafety) {
		a.v.ChildSafe = false
	}

	a.v.Findings = append(a.v.Findings, r.findings...)

	if r.ageRating != "" && r.ageRating.rank() > a.v.AgeRating.rank() {
		a.v.AgeRating = r.ageRating
	}
}

func (a *accumulator) degrade(layer Layer) {
	a.v.Degraded = true
	a.v.DegradedLayers = append(a.v.DegradedLayers, layer)
}

func (a *accumulator) critical() bool {
	return a.v.Severity >= SeverityCritical
}

func (a *accumulator) verdict() Verdict {
	v := a.v
	slices.SortFunc(v.Violations, func(x, y Tag) int {
		return slices.Index(tags, x) - slices.Index(tags, y)
	})
	if !v.IsSafe {
		v.Recommendations = Recommendations(v.Violations)
	}
	return v
}

// Validator runs the enabled layers against document content.
type Validator struct {
	cfg      Config
	catalog  Catalog
	semantic SemanticChecker
	child    ChildChecker
	logger   *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithCatalog replaces the default pattern catalog.
func WithCatalog(c Catalog) Option {
	return func(v *Validator) {
		v.catalog = c
	}
}

// WithLogger sets the logger used for degraded-layer warnings.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// New creates a Validator. Checkers may be nil only when their layer is disabled.
func New(cfg Config, semantic SemanticChecker, child ChildChecker, opts ...Option) (*Validator, error) {
	if cfg.Semantic && semantic == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingChecker, LayerSemantic)
	}
	if cfg.ChildSafety && child == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingChecker, LayerChildSafety)
	}

	v := &Validator{
		cfg:      cfg,
		semantic: semantic,
		child:    child,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.catalog == nil {
		v.catalog = DefaultCatalog()
	}
	v.logger = v.logger.With("system", "safety")
	return v, nil
}

// Validate runs every enabled layer in order. A layer that reaches critical
// severity ends validation early. A failed model-backed layer marks the
// verdict degraded instead of failing. Only context cancellation returns an
// error.
func (v *Validator) Validate(ctx context.Context, content string) (Verdict, error) {
	acc := newAccumulator()

	if v.cfg.Pattern {
		acc.fold(v.patternLayer(content))
	}

	if v.cfg.Semantic && !acc.critical() {
		r, err := v.semanticLayer(ctx, content)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Verdict{}, ctxErr
			}
			v.logger.WarnContext(ctx, "semantic layer degraded", "error", err)
			acc.degrade(LayerSemantic)
		} else {
			acc.fold(r)
		}
	}

	if v.cfg.ChildSafety {
		if acc.critical() {
			acc.v.ChildSafe = false
		} else {
			r, err := v.childLayer(ctx, content)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Verdict{}, ctxErr
				}
				v.logger.WarnContext(ctx, "child safety layer degraded", "error", err)
				acc.degrade(LayerChildSafety)
			} else {
				acc.fold(r)
			}
		}
	}

	return acc.verdict(), nil
}

func (v *Validator) patternLayer(content string) layerResult {
	r := layerResult{
		layer: LayerPattern,
		score: 1,
	}

	matches := v.catalog.Match(content)
	if len(matches) == 0 {
		return r
	}

	r.unsafe = true
	r.severity = SeverityMedium
	for _, tag := range tags {
		m, ok := matches[tag]
		if !ok {
			continue
		}
		r.violations = append(r.violations, tag)
		r.findings = append(r.findings, Finding{
			Layer:       LayerPattern,
			Tag:         tag,
			Description: fmt.Sprintf("%s: pattern match found", tag),
			Matches:     m,
		})
		if tag == ChildSafety {
			r.severity = SeverityHigh
		}
	}
	r.score = max(0, 1-0.25*float64(len(r.violations)))
	return r
}

func (v *Validator) semanticLayer(ctx context.Context, content string) (layerResult, error) {
	a, err := v.semantic.CheckSemantic(ctx, truncate(content, v.cfg.SemanticLimit))
	if err != nil {
		return layerResult{}, fmt.Errorf("%w: %s: %w", ErrLayerUnavailable, LayerSemantic, err)
	}

	r := layerResult{
		layer:      LayerSemantic,
		unsafe:     !a.IsSafe,
		score:      a.SafetyScore,
		severity:   a.Severity,
		violations: a.Violations,
	}
	for _, d := range a.Descriptions {
		r.findings = append(r.findings, Finding{Layer: LayerSemantic, Description: d})
	}
	if !a.IsSafe && len(a.Descriptions) == 0 && a.Reasoning != "" {
		r.findings = append(r.findings, Finding{Layer: LayerSemantic, Description: a.Reasoning})
	}
	return r, nil
}

func (v *Validator) childLayer(ctx context.Context, content string) (layerResult, error) {
	a, err := v.child.CheckChild(ctx, truncate(content, v.cfg.ChildLimit))
	if err != nil {
		return layerResult{}, fmt.Errorf("%w: %s: %w", ErrLayerUnavailable, LayerChildSafety, err)
	}

	r := layerResult{
		layer:     LayerChildSafety,
		score:     1,
		ageRating: a.AgeRating,
	}
	if !a.Positive() {
		return r, nil
	}

	r.childRisk = true
	r.violations = []Tag{ChildSafety}
	r.severity = SeverityMedium

	if a.Unsafe && a.AgeRating != Adult {
		r.score = min(r.score, 0.3)
		r.findings = append(r.findings, Finding{Layer: LayerChildSafety, Tag: ChildSafety, Description: "content judged unsafe for children"})
	}
	if a.AgeRating == Adult {
		r.score = min(r.score, 0.3)
		r.findings = append(r.findings, Finding{Layer: LayerChildSafety, Tag: ChildSafety, Description: "content rated 18+"})
	}
	if a.CollectsPersonalInfo {
		r.score = min(r.score, 0.4)
		r.findings = append(r.findings, Finding{Layer: LayerChildSafety, Tag: ChildSafety, Description: "collects personal information from minors"})
	}
	if a.EndangermentRisk {
		r.score = 0
		r.severity = SeverityHigh
		r.findings = append(r.findings, Finding{Layer: LayerChildSafety, Tag: ChildSafety, Description: "content could endanger children"})
	}
	for _, c := range a.Concerns {
		r.findings = append(r.findings, Finding{Layer: LayerChildSafety, Tag: ChildSafety, Description: c})
	}
	return r, nil
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func clampScore(s float64) float64 {
	return min(max(s, 0), 1)
}
