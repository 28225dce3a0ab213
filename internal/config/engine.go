package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

const (
	EnvEngineThreshold       = "ARBITER_ENGINE_THRESHOLD"
	EnvEngineAlpha           = "ARBITER_ENGINE_ALPHA"
	EnvEngineBeta            = "ARBITER_ENGINE_BETA"
	EnvEngineMinObservations = "ARBITER_ENGINE_MIN_OBSERVATIONS"
	EnvEnginePassTimeout     = "ARBITER_ENGINE_PASS_TIMEOUT"
	EnvEngineDualValidation  = "ARBITER_ENGINE_DUAL_VALIDATION"
	EnvEngineWorkers         = "ARBITER_ENGINE_WORKERS"
	EnvEnginePatternsFile    = "ARBITER_ENGINE_PATTERNS_FILE"
	EnvEngineJournalPath     = "ARBITER_ENGINE_JOURNAL_PATH"
)

// WeightsConfig holds the auto-approval factor weights.
type WeightsConfig struct {
	Confidence float64 `toml:"confidence"`
	Consensus  float64 `toml:"consensus"`
	Precision  float64 `toml:"precision"`
	Safety     float64 `toml:"safety"`
}

func (c WeightsConfig) isZero() bool {
	return c == WeightsConfig{}
}

// SafetyConfig enables safety layers and locates an optional pattern file.
type SafetyConfig struct {
	Pattern       *bool  `toml:"pattern"`
	Semantic      *bool  `toml:"semantic"`
	ChildSafety   *bool  `toml:"child_safety"`
	PatternsFile  string `toml:"patterns_file"`
	SemanticLimit int    `toml:"semantic_limit"`
	ChildLimit    int    `toml:"child_limit"`
}

// PatternEnabled reports whether the pattern layer runs.
func (c *SafetyConfig) PatternEnabled() bool { return enabled(c.Pattern) }

// SemanticEnabled reports whether the semantic layer runs.
func (c *SafetyConfig) SemanticEnabled() bool { return enabled(c.Semantic) }

// ChildSafetyEnabled reports whether the child-safety layer runs.
func (c *SafetyConfig) ChildSafetyEnabled() bool { return enabled(c.ChildSafety) }

// EngineConfig holds the decision engine's tunable parameters.
type EngineConfig struct {
	Weights                  WeightsConfig `toml:"weights"`
	Threshold                float64       `toml:"threshold"`
	Alpha                    float64       `toml:"alpha"`
	Beta                     float64       `toml:"beta"`
	NeutralPrior             float64       `toml:"neutral_prior"`
	MinObservations          int           `toml:"min_observations"`
	AgreementCap             float64       `toml:"agreement_cap"`
	// BonusAboveRaw lets the consensus bonus lift calibrated confidence
	// past the raw value. Off by default, calibration never exceeds raw
	// confidence while precision is below 1; on, two agreeing 0.92/0.88
	// CONFIDENTIAL drafts at precision 0.9 calibrate to 0.935 instead of 0.92.
	BonusAboveRaw            bool          `toml:"bonus_above_raw"`
	PassTimeout              string        `toml:"pass_timeout"`
	DualValidation           *bool         `toml:"dual_validation"`
	PassTemperatures         []float64     `toml:"pass_temperatures"`
	Workers                  int           `toml:"workers"`
	MinCitationConfidence    float64       `toml:"min_citation_confidence"`
	MaxCitationSpan          int           `toml:"max_citation_span"`
	ReviewOnDegraded         *bool         `toml:"review_on_degraded"`
	ScaleConsensusByStrength bool          `toml:"scale_consensus_by_strength"`
	JournalPath              string        `toml:"journal_path"`
	Safety                   SafetyConfig  `toml:"safety"`
}

// PassTimeoutDuration returns PassTimeout as a time.Duration.
func (c *EngineConfig) PassTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.PassTimeout)
	return d
}

// DualValidationEnabled reports whether two drafting passes run per document.
func (c *EngineConfig) DualValidationEnabled() bool {
	return enabled(c.DualValidation)
}

// ReviewOnDegradedEnabled reports whether degraded safety checks force review.
func (c *EngineConfig) ReviewOnDegradedEnabled() bool {
	return enabled(c.ReviewOnDegraded)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EngineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EngineConfig) Merge(overlay *EngineConfig) {
	if !overlay.Weights.isZero() {
		c.Weights = overlay.Weights
	}
	if overlay.Threshold != 0 {
		c.Threshold = overlay.Threshold
	}
	if overlay.Alpha != 0 {
		c.Alpha = overlay.Alpha
	}
	if overlay.Beta != 0 {
		c.Beta = overlay.Beta
	}
	if overlay.NeutralPrior != 0 {
		c.NeutralPrior = overlay.NeutralPrior
	}
	if overlay.MinObservations != 0 {
		c.MinObservations = overlay.MinObservations
	}
	if overlay.AgreementCap != 0 {
		c.AgreementCap = overlay.AgreementCap
	}
	if overlay.BonusAboveRaw {
		c.BonusAboveRaw = true
	}
	if overlay.PassTimeout != "" {
		c.PassTimeout = overlay.PassTimeout
	}
	if overlay.DualValidation != nil {
		c.DualValidation = overlay.DualValidation
	}
	if len(overlay.PassTemperatures) > 0 {
		c.PassTemperatures = overlay.PassTemperatures
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.MinCitationConfidence != 0 {
		c.MinCitationConfidence = overlay.MinCitationConfidence
	}
	if overlay.MaxCitationSpan != 0 {
		c.MaxCitationSpan = overlay.MaxCitationSpan
	}
	if overlay.ReviewOnDegraded != nil {
		c.ReviewOnDegraded = overlay.ReviewOnDegraded
	}
	if overlay.ScaleConsensusByStrength {
		c.ScaleConsensusByStrength = true
	}
	if overlay.JournalPath != "" {
		c.JournalPath = overlay.JournalPath
	}
	if overlay.Safety.Pattern != nil {
		c.Safety.Pattern = overlay.Safety.Pattern
	}
	if overlay.Safety.Semantic != nil {
		c.Safety.Semantic = overlay.Safety.Semantic
	}
	if overlay.Safety.ChildSafety != nil {
		c.Safety.ChildSafety = overlay.Safety.ChildSafety
	}
	if overlay.Safety.PatternsFile != "" {
		c.Safety.PatternsFile = overlay.Safety.PatternsFile
	}
	if overlay.Safety.SemanticLimit != 0 {
		c.Safety.SemanticLimit = overlay.Safety.SemanticLimit
	}
	if overlay.Safety.ChildLimit != 0 {
		c.Safety.ChildLimit = overlay.Safety.ChildLimit
	}
}

func (c *EngineConfig) loadDefaults() {
	if c.Weights.isZero() {
		c.Weights = WeightsConfig{Confidence: 0.4, Consensus: 0.3, Precision: 0.2, Safety: 0.1}
	}
	if c.Threshold == 0 {
		c.Threshold = 0.75
	}
	if c.Alpha == 0 {
		c.Alpha = 0.7
	}
	if c.Beta == 0 {
		c.Beta = 0.05
	}
	if c.NeutralPrior == 0 {
		c.NeutralPrior = 0.75
	}
	if c.MinObservations == 0 {
		c.MinObservations = 10
	}
	if c.AgreementCap == 0 {
		c.AgreementCap = 1.0
	}
	if c.PassTimeout == "" {
		c.PassTimeout = "45s"
	}
	if len(c.PassTemperatures) == 0 {
		c.PassTemperatures = []float64{0.1, 0.3}
	}
	if c.MinCitationConfidence == 0 {
		c.MinCitationConfidence = 0.6
	}
	if c.MaxCitationSpan == 0 {
		c.MaxCitationSpan = 3
	}
	if c.JournalPath == "" {
		c.JournalPath = ".arbiter/journal"
	}
	if c.Safety.SemanticLimit == 0 {
		c.Safety.SemanticLimit = 5000
	}
	if c.Safety.ChildLimit == 0 {
		c.Safety.ChildLimit = 3000
	}
}

func (c *EngineConfig) loadEnv() {
	setFloat := func(env string, dst *float64) {
		if v := os.Getenv(env); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setFloat(EnvEngineThreshold, &c.Threshold)
	setFloat(EnvEngineAlpha, &c.Alpha)
	setFloat(EnvEngineBeta, &c.Beta)

	if v := os.Getenv(EnvEngineMinObservations); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MinObservations = n
		}
	}
	if v := os.Getenv(EnvEnginePassTimeout); v != "" {
		c.PassTimeout = v
	}
	if v := os.Getenv(EnvEngineDualValidation); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DualValidation = &b
		}
	}
	if v := os.Getenv(EnvEngineWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvEnginePatternsFile); v != "" {
		c.Safety.PatternsFile = v
	}
	if v := os.Getenv(EnvEngineJournalPath); v != "" {
		c.JournalPath = v
	}
}

func (c *EngineConfig) validate() error {
	w := c.Weights
	if w.Confidence < 0 || w.Consensus < 0 || w.Precision < 0 || w.Safety < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if sum := w.Confidence + w.Consensus + w.Precision + w.Safety; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights sum to %v, want 1.0", sum)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold %v outside [0,1]", c.Threshold)
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha %v outside [0,1]", c.Alpha)
	}
	if c.MinObservations < 0 {
		return fmt.Errorf("min_observations must be non-negative")
	}
	if d, err := time.ParseDuration(c.PassTimeout); err != nil {
		return fmt.Errorf("invalid pass_timeout: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("pass_timeout must be positive")
	}
	if n := len(c.PassTemperatures); n < 1 || n > 2 {
		return fmt.Errorf("pass_temperatures must have 1 or 2 entries, got %d", n)
	}
	if c.DualValidationEnabled() && len(c.PassTemperatures) < 2 {
		return fmt.Errorf("dual_validation requires two pass_temperatures")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if c.MinCitationConfidence <= 0 || c.MinCitationConfidence > 1 {
		return fmt.Errorf("min_citation_confidence %v outside (0,1]", c.MinCitationConfidence)
	}
	if c.MaxCitationSpan < 1 {
		return fmt.Errorf("max_citation_span must be at least 1")
	}
	return nil
}

func enabled(b *bool) bool {
	return b == nil || *b
}
