package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const draftedRequest = `{
  "document_id": "memo-7",
  "content_map": [
    {"page": 1, "block_index": 0, "bbox": {"x0": 72, "y0": 72, "x1": 540, "y1": 90}, "text": "Quarterly budget summary"},
    {"page": 2, "block_index": 0, "bbox": {"x0": 72, "y0": 300, "x1": 400, "y1": 318}, "text": "Internal distribution only"}
  ],
  "drafts": [
    {"category": "SENSITIVE", "raw_confidence": 0.9, "pass_index": 1, "cited_excerpts": ["Internal distribution only"]},
    {"category": "SENSITIVE", "raw_confidence": 0.86, "pass_index": 2}
  ]
}`

const undraftedRequest = `[{
  "document_id": "memo-8",
  "content_map": [
    {"page": 1, "block_index": 0, "bbox": {"x0": 0, "y0": 0, "x1": 10, "y1": 10}, "text": "Lunch menu"}
  ]
}]`

// workspace switches to an empty directory so no config.toml is read, and
// returns the journal directory to pass on the command line.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
	t.Setenv("ARBITER_LOG_LEVEL", "error")
	return filepath.Join(dir, "journal")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	if err := os.WriteFile(name, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return name
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassifyCorrectReport(t *testing.T) {
	journal := workspace(t)
	req := writeFile(t, "memo.json", draftedRequest)

	out, err := run(t, "classify", "--journal", journal, req)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	var res struct {
		Source     string `json:"source"`
		DocumentID string `json:"document_id"`
		Decision   struct {
			FinalCategory string `json:"final_category"`
		} `json:"decision"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode classify output %q: %v", out, err)
	}
	if res.DocumentID != "memo-7" || res.Source != req || res.Error != "" {
		t.Errorf("result = %+v", res)
	}
	if res.Decision.FinalCategory != "SENSITIVE" {
		t.Errorf("final category = %s, want SENSITIVE", res.Decision.FinalCategory)
	}

	out, err = run(t, "correct", "--journal", journal, "memo-7", "CONFIDENTIAL",
		"--original", "SENSITIVE", "--confidence", "0.8", "--reviewer", "analyst")
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if !strings.Contains(out, `"changed": true`) {
		t.Errorf("correct output missing changed flag:\n%s", out)
	}

	out, err = run(t, "report", "--journal", journal, "--format", "json")
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	var report struct {
		TotalPredictions  int `json:"total_predictions"`
		TotalObservations int `json:"total_observations"`
		Corrections       int `json:"corrections"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalPredictions != 1 || report.TotalObservations != 1 || report.Corrections != 1 {
		t.Errorf("report replayed from journal = %+v", report)
	}

	out, err = run(t, "report", "--journal", journal)
	if err != nil {
		t.Fatalf("text report: %v", err)
	}
	if !strings.HasPrefix(out, "ACCURACY REPORT") {
		t.Errorf("text report:\n%s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(journal string) []string
		wantErr string
	}{
		{
			name: "offline without drafts",
			args: func(journal string) []string {
				return []string{"classify", "--offline", "--journal", journal, writeFile(t, "lunch.json", undraftedRequest)}
			},
			wantErr: "1 of 1 documents failed",
		},
		{
			name: "missing request file",
			args: func(journal string) []string {
				return []string{"classify", "--journal", journal, "absent.json"}
			},
			wantErr: "absent.json",
		},
		{
			name: "unknown category",
			args: func(journal string) []string {
				return []string{"correct", "--journal", journal, "memo-7", "SECRET", "--original", "PUBLIC", "--confidence", "0.5"}
			},
			wantErr: "SECRET",
		},
		{
			name: "missing original",
			args: func(journal string) []string {
				return []string{"correct", "--journal", journal, "memo-7", "PUBLIC", "--confidence", "0.5"}
			},
			wantErr: "original",
		},
		{
			name: "bad report format",
			args: func(journal string) []string {
				return []string{"report", "--journal", journal, "--format", "xml"}
			},
			wantErr: "format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journal := workspace(t)
			_, err := run(t, tt.args(journal)...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
