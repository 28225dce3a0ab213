package accuracy

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Report is the exported form of a snapshot.
type Report struct {
	Snapshot
	ExpectedCalibrationError float64 `json:"expected_calibration_error"`
}

// Report snapshots the tracker for export.
func (t *Tracker) Report() Report {
	s := t.Snapshot()
	return Report{
		Snapshot:                 s,
		ExpectedCalibrationError: s.ExpectedCalibrationError(),
	}
}

// WriteJSON encodes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText renders the report as aligned tables.
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "ACCURACY REPORT\t%s\n", r.TakenAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(tw, "predictions\t%d\n", r.TotalPredictions)
	fmt.Fprintf(tw, "observations\t%d\n", r.TotalObservations)
	fmt.Fprintf(tw, "accuracy\t%.2f%%\n", r.Accuracy*100)
	fmt.Fprintf(tw, "macro f1\t%.4f\n", r.MacroF1)
	fmt.Fprintf(tw, "auto-approval rate\t%.2f%%\n", r.AutoApprovalRate*100)
	fmt.Fprintf(tw, "correction rate\t%.2f%%\n", r.CorrectionRate*100)
	fmt.Fprintf(tw, "expected calibration error\t%.4f\n", r.ExpectedCalibrationError)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "CATEGORY\tTP\tFP\tFN\tPRECISION\tRECALL\tF1")
	for _, s := range r.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.4f\t%.4f\t%.4f\n",
			s.Category, s.TruePositives, s.FalsePositives, s.FalseNegatives, s.Precision, s.Recall, s.F1)
	}

	if len(r.Bins) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "BIN\tSAMPLES\tMEAN CONFIDENCE\tACCURACY\tERROR")
		for _, b := range r.Bins {
			fmt.Fprintf(tw, "%.1f\t%d\t%.4f\t%.4f\t%.4f\n",
				b.Lower, b.Samples, b.MeanConfidence, b.Accuracy, b.CalibrationError)
		}
	}

	return tw.Flush()
}

// String renders the text report.
func (r Report) String() string {
	var b strings.Builder
	_ = r.WriteText(&b)
	return b.String()
}
