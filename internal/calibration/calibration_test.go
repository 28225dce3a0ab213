package calibration_test

import (
	"errors"
	"math"
	"testing"

	"github.com/JaimeStill/arbiter/internal/calibration"
	"github.com/JaimeStill/arbiter/internal/category"
)

type fixedSource struct {
	precision    map[category.Category]float64
	observations map[category.Category]int
}

func (f fixedSource) Precision(c category.Category) float64 { return f.precision[c] }
func (f fixedSource) Observations(c category.Category) int  { return f.observations[c] }

func source(c category.Category, p float64, n int) fixedSource {
	return fixedSource{
		precision:    map[category.Category]float64{c: p},
		observations: map[category.Category]int{c: n},
	}
}

func newCalibrator(t *testing.T, cfg calibration.Config, src calibration.PrecisionSource) *calibration.Calibrator {
	t.Helper()
	c, err := calibration.New(cfg, src)
	if err != nil {
		t.Fatalf("new calibrator: %v", err)
	}
	return c
}

func TestCalibrateScenario(t *testing.T) {
	src := source(category.Confidential, 0.9, 50)

	t.Run("bonus above raw allowed", func(t *testing.T) {
		cfg := calibration.DefaultConfig()
		cfg.BonusAboveRaw = true
		c := newCalibrator(t, cfg, src)

		r := c.Calibrate(0.92, category.Confidential, 0.88)
		want := 0.92*(0.7+0.3*0.9) + 0.05*0.88
		if math.Abs(r.Calibrated-want) > 1e-9 {
			t.Errorf("calibrated = %v, want %v", r.Calibrated, want)
		}
		if r.UsedPrior {
			t.Error("expected historical precision, got prior")
		}
	})

	t.Run("default caps at raw", func(t *testing.T) {
		c := newCalibrator(t, calibration.DefaultConfig(), src)

		r := c.Calibrate(0.92, category.Confidential, 0.88)
		if r.Calibrated != 0.92 {
			t.Errorf("calibrated = %v, want 0.92", r.Calibrated)
		}
		if !r.Capped {
			t.Error("expected capped result")
		}
	})
}

func TestCalibrateNeverExceedsRawBelowPerfectPrecision(t *testing.T) {
	c := newCalibrator(t, calibration.DefaultConfig(), source(category.Public, 0.99, 100))

	for raw := 0.0; raw <= 1.0; raw += 0.05 {
		for strength := 0.0; strength <= 1.0; strength += 0.1 {
			r := c.Calibrate(raw, category.Public, strength)
			if r.Calibrated > r.Raw+1e-12 {
				t.Fatalf("calibrate(%v, %v) = %v exceeds raw", raw, strength, r.Calibrated)
			}
			if r.Calibrated < 0 || r.Calibrated > 1 {
				t.Fatalf("calibrate(%v, %v) = %v outside [0,1]", raw, strength, r.Calibrated)
			}
		}
	}
}

func TestCalibrateBounds(t *testing.T) {
	c := newCalibrator(t, calibration.DefaultConfig(), source(category.Unsafe, 1.0, 100))

	r := c.Calibrate(1.0, category.Unsafe, 1.0)
	if r.Calibrated != 1.0 {
		t.Errorf("calibrated = %v, want 1.0", r.Calibrated)
	}

	r = c.Calibrate(-0.4, category.Unsafe, 0)
	if r.Calibrated != 0 {
		t.Errorf("calibrated = %v, want 0", r.Calibrated)
	}
}

func TestCalibrateUsesPriorWhenSparse(t *testing.T) {
	c := newCalibrator(t, calibration.DefaultConfig(), source(category.Sensitive, 0.2, 3))

	p, prior, n := c.Precision(category.Sensitive)
	if !prior || p != 0.75 || n != 3 {
		t.Errorf("precision = (%v, %v, %d), want (0.75, true, 3)", p, prior, n)
	}

	r := c.Calibrate(0.8, category.Sensitive, 0)
	want := 0.8 * (0.7 + 0.3*0.75)
	if math.Abs(r.Calibrated-want) > 1e-9 {
		t.Errorf("calibrated = %v, want %v", r.Calibrated, want)
	}
}

func TestAgreementCap(t *testing.T) {
	cfg := calibration.DefaultConfig()
	cfg.BonusAboveRaw = true
	cfg.AgreementCap = 0.5
	c := newCalibrator(t, cfg, source(category.Public, 0.5, 100))

	r := c.Calibrate(0.5, category.Public, 0.9)
	if math.Abs(r.Bonus-0.025) > 1e-12 {
		t.Errorf("bonus = %v, want 0.025", r.Bonus)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*calibration.Config)
	}{
		{"alpha", func(c *calibration.Config) { c.Alpha = 1.5 }},
		{"beta", func(c *calibration.Config) { c.Beta = -0.1 }},
		{"prior", func(c *calibration.Config) { c.NeutralPrior = 2 }},
		{"min observations", func(c *calibration.Config) { c.MinObservations = -1 }},
		{"agreement cap", func(c *calibration.Config) { c.AgreementCap = 1.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := calibration.DefaultConfig()
			tt.mutate(&cfg)
			if _, err := calibration.New(cfg, fixedSource{}); !errors.Is(err, calibration.ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
