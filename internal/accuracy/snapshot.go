package accuracy

import (
	"math"
	"time"

	"github.com/JaimeStill/arbiter/internal/category"
)

// Stats holds the counters and derived metrics for one category.
type Stats struct {
	Category       category.Category `json:"category"`
	TruePositives  int               `json:"true_positives"`
	FalsePositives int               `json:"false_positives"`
	FalseNegatives int               `json:"false_negatives"`
	Precision      float64           `json:"precision"`
	Recall         float64           `json:"recall"`
	F1             float64           `json:"f1"`
}

// Observations returns TP+FP, the number of ground-truth observations
// predicted as this category.
func (s Stats) Observations() int {
	return s.TruePositives + s.FalsePositives
}

// Bin summarizes calibration for observations whose confidence fell in
// [Lower, Lower+0.1).
type Bin struct {
	Lower            float64 `json:"lower"`
	Samples          int     `json:"samples"`
	MeanConfidence   float64 `json:"mean_confidence"`
	Accuracy         float64 `json:"accuracy"`
	CalibrationError float64 `json:"calibration_error"`
}

// Snapshot is a point-in-time copy of the aggregate.
type Snapshot struct {
	Categories        []Stats                                         `json:"categories"`
	Confusion         map[category.Category]map[category.Category]int `json:"confusion_matrix"`
	MacroF1           float64                                         `json:"macro_f1"`
	TotalPredictions  int                                             `json:"total_predictions"`
	TotalObservations int                                             `json:"total_observations"`
	Accuracy          float64                                         `json:"accuracy"`
	AutoApproved      int                                             `json:"auto_approved"`
	AutoApprovalRate  float64                                         `json:"auto_approval_rate"`
	Corrections       int                                             `json:"corrections"`
	CorrectionRate    float64                                         `json:"correction_rate"`
	Bins              []Bin                                           `json:"calibration_bins"`
	TakenAt           time.Time                                       `json:"taken_at"`
}

// Stats returns the entry for c, or zero stats when c is absent.
func (s Snapshot) Stats(c category.Category) Stats {
	for _, st := range s.Categories {
		if st.Category == c {
			return st
		}
	}
	return Stats{Category: c}
}

// ExpectedCalibrationError returns the sample-weighted mean calibration
// error across populated bins.
func (s Snapshot) ExpectedCalibrationError() float64 {
	if s.TotalObservations == 0 {
		return 0
	}
	var sum float64
	for _, b := range s.Bins {
		sum += b.CalibrationError * float64(b.Samples)
	}
	return sum / float64(s.TotalObservations)
}

// Snapshot copies the current aggregate.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	all := category.All()
	s := Snapshot{
		Categories:        make([]Stats, 0, len(all)),
		Confusion:         make(map[category.Category]map[category.Category]int, len(all)),
		MacroF1:           t.macroF1Locked(),
		TotalPredictions:  t.predictions,
		TotalObservations: t.observations,
		Accuracy:          ratio(t.correct, t.observations),
		AutoApproved:      t.autoApproved,
		AutoApprovalRate:  ratio(t.autoApproved, t.predictions),
		Corrections:       t.corrections,
		CorrectionRate:    ratio(t.corrections, t.predictions),
		Bins:              make([]Bin, 0),
		TakenAt:           t.now().UTC(),
	}

	for _, predicted := range all {
		s.Categories = append(s.Categories, t.statsLocked(predicted))

		row := make(map[category.Category]int, len(all))
		for _, actual := range all {
			row[actual] = t.confusion[Cell{Predicted: predicted, Actual: actual}]
		}
		s.Confusion[predicted] = row
	}

	for i, b := range t.bins {
		if b.samples == 0 {
			continue
		}
		mean := b.confidenceSum / float64(b.samples)
		acc := ratio(b.correct, b.samples)
		s.Bins = append(s.Bins, Bin{
			Lower:            float64(i) / 10,
			Samples:          b.samples,
			MeanConfidence:   mean,
			Accuracy:         acc,
			CalibrationError: math.Abs(mean - acc),
		})
	}

	return s
}
