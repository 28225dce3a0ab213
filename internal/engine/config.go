package engine

import (
	"fmt"
	"runtime"
	"time"

	"github.com/JaimeStill/arbiter/internal/calibration"
	"github.com/JaimeStill/arbiter/internal/config"
	"github.com/JaimeStill/arbiter/internal/scoring"
)

// Config holds the runtime parameters of the engine.
type Config struct {
	Calibration      calibration.Config
	Scoring          scoring.Config
	PassTimeout      time.Duration
	DualValidation   bool
	PassTemperatures []float64
	Workers          int
}

// DefaultConfig returns dual validation at temperatures 0.1 and 0.3 with a
// 45 second pass timeout.
func DefaultConfig() Config {
	return Config{
		Calibration:      calibration.DefaultConfig(),
		Scoring:          scoring.DefaultConfig(),
		PassTimeout:      45 * time.Second,
		DualValidation:   true,
		PassTemperatures: []float64{0.1, 0.3},
	}
}

// FromConfig maps the finalized engine section onto a runtime Config.
func FromConfig(c *config.EngineConfig) Config {
	return Config{
		Calibration: calibration.Config{
			Alpha:           c.Alpha,
			Beta:            c.Beta,
			NeutralPrior:    c.NeutralPrior,
			MinObservations: c.MinObservations,
			AgreementCap:    c.AgreementCap,
			BonusAboveRaw:   c.BonusAboveRaw,
		},
		Scoring: scoring.Config{
			Weights: scoring.Weights{
				Confidence: c.Weights.Confidence,
				Consensus:  c.Weights.Consensus,
				Precision:  c.Weights.Precision,
				Safety:     c.Weights.Safety,
			},
			Threshold:                c.Threshold,
			ScaleConsensusByStrength: c.ScaleConsensusByStrength,
			ReviewOnDegraded:         c.ReviewOnDegradedEnabled(),
		},
		PassTimeout:      c.PassTimeoutDuration(),
		DualValidation:   c.DualValidationEnabled(),
		PassTemperatures: c.PassTemperatures,
		Workers:          c.Workers,
	}
}

func (c Config) validate() error {
	if c.PassTimeout <= 0 {
		return fmt.Errorf("%w: pass timeout must be positive", ErrInvalidConfig)
	}
	if len(c.PassTemperatures) < c.passes() {
		return fmt.Errorf("%w: %d passes need %d temperatures", ErrInvalidConfig, c.passes(), c.passes())
	}
	return nil
}

func (c Config) passes() int {
	if c.DualValidation {
		return 2
	}
	return 1
}

func (c Config) temperatures() []float64 {
	return c.PassTemperatures[:c.passes()]
}

func (c Config) workerCount(n int) int {
	w := c.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return max(min(w, n), 1)
}
