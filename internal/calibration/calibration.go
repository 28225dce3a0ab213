// Package calibration adjusts a model's raw confidence using the proven
// historical precision of the predicted category.
package calibration

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/arbiter/internal/category"
)

// ErrInvalidConfig is returned when calibration parameters are out of range.
var ErrInvalidConfig = errors.New("invalid calibration config")

// PrecisionSource supplies historical precision and the number of
// observations behind it. *accuracy.Tracker satisfies it.
type PrecisionSource interface {
	Precision(c category.Category) float64
	Observations(c category.Category) int
}

// Config holds the calibration parameters.
type Config struct {
	// Alpha blends raw confidence with historical precision.
	Alpha float64
	// Beta weights the consensus bonus.
	Beta float64
	// NeutralPrior stands in for precision while observations are sparse.
	NeutralPrior float64
	// MinObservations is the number of observations required before
	// historical precision is trusted.
	MinObservations int
	// AgreementCap bounds the agreement strength eligible for the bonus.
	AgreementCap float64
	// BonusAboveRaw lets the consensus bonus lift the result above the raw
	// confidence when precision is below 1.
	BonusAboveRaw bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:           0.7,
		Beta:            0.05,
		NeutralPrior:    0.75,
		MinObservations: 10,
		AgreementCap:    1.0,
	}
}

// Validate checks every parameter range.
func (c Config) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v outside [0,1]", ErrInvalidConfig, c.Alpha)
	}
	if c.Beta < 0 || c.Beta > 1 {
		return fmt.Errorf("%w: beta %v outside [0,1]", ErrInvalidConfig, c.Beta)
	}
	if c.NeutralPrior < 0 || c.NeutralPrior > 1 {
		return fmt.Errorf("%w: neutral_prior %v outside [0,1]", ErrInvalidConfig, c.NeutralPrior)
	}
	if c.MinObservations < 0 {
		return fmt.Errorf("%w: min_observations %d is negative", ErrInvalidConfig, c.MinObservations)
	}
	if c.AgreementCap < 0 || c.AgreementCap > 1 {
		return fmt.Errorf("%w: agreement_cap %v outside [0,1]", ErrInvalidConfig, c.AgreementCap)
	}
	return nil
}

// Result is a calibrated confidence with the inputs that produced it.
type Result struct {
	Raw          float64 `json:"raw"`
	Calibrated   float64 `json:"calibrated"`
	Precision    float64 `json:"precision"`
	UsedPrior    bool    `json:"used_prior"`
	Observations int     `json:"observations"`
	Base         float64 `json:"base"`
	Bonus        float64 `json:"bonus"`
	Capped       bool    `json:"capped"`
}

// Calibrator computes calibrated confidences.
type Calibrator struct {
	cfg    Config
	source PrecisionSource
}

// New creates a Calibrator reading precision from source.
func New(cfg Config, source PrecisionSource) (*Calibrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calibrator{cfg: cfg, source: source}, nil
}

// Precision returns the precision calibration uses for c: the historical
// value once enough observations exist, otherwise the neutral prior.
func (c *Calibrator) Precision(cat category.Category) (p float64, usedPrior bool, observations int) {
	observations = c.source.Observations(cat)
	if observations < c.cfg.MinObservations || observations == 0 {
		return c.cfg.NeutralPrior, true, observations
	}
	return clamp(c.source.Precision(cat)), false, observations
}

// Calibrate pulls raw toward the category's proven reliability and adds a
// bounded bonus for corroborating passes:
//
//	base = raw * (alpha + (1-alpha) * p)
//	calibrated = min(1, base + beta * strength)
//
// Unless BonusAboveRaw is set, the result never exceeds raw while p < 1.
func (c *Calibrator) Calibrate(raw float64, cat category.Category, strength float64) Result {
	raw = clamp(raw)
	p, prior, n := c.Precision(cat)

	base := raw * (c.cfg.Alpha + (1-c.cfg.Alpha)*p)
	bonus := c.cfg.Beta * min(clamp(strength), c.cfg.AgreementCap)
	calibrated := min(1.0, base+bonus)

	r := Result{
		Raw:          raw,
		Precision:    p,
		UsedPrior:    prior,
		Observations: n,
		Base:         base,
		Bonus:        bonus,
	}

	if !c.cfg.BonusAboveRaw && p < 1 && calibrated > raw {
		calibrated = raw
		r.Capped = true
	}

	r.Calibrated = clamp(calibrated)
	return r
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
