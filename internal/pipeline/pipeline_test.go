package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/internal/config"
	"github.com/JaimeStill/arbiter/internal/consensus"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/internal/llm"
	"github.com/JaimeStill/arbiter/internal/pipeline"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	if err := cfg.Engine.Finalize(); err != nil {
		t.Fatalf("engine finalize: %v", err)
	}
	if err := cfg.Model.Finalize(); err != nil {
		t.Fatalf("model finalize: %v", err)
	}
	return cfg
}

func content() citations.ContentMap {
	return citations.ContentMap{
		{Page: 1, BlockIndex: 0, Region: citations.Region{X0: 72, Y0: 72, X1: 540, Y1: 90}, Text: "Quarterly budget summary"},
		{Page: 2, BlockIndex: 0, Region: citations.Region{X0: 72, Y0: 300, X1: 400, Y1: 318}, Text: "Internal distribution only"},
	}
}

type stubProvider struct {
	calls int
}

func (p *stubProvider) Complete(context.Context, string, string, int, float64) (string, error) {
	p.calls++
	return `{"category":"SENSITIVE","confidence":0.9,"reasoning":"internal","cited_excerpts":["Internal distribution only"]}`, nil
}

func stubProviders(t *testing.T, p llm.Provider) {
	t.Helper()
	orig := llm.NewProvider
	llm.NewProvider = func(string, string, llm.Credentials) (llm.Provider, error) {
		return p, nil
	}
	t.Cleanup(func() { llm.NewProvider = orig })
}

var discard = slog.New(slog.DiscardHandler)

func TestNew(t *testing.T) {
	stubProviders(t, &stubProvider{})

	eng, err := pipeline.New(testConfig(t), accuracy.NewTracker(), discard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if eng.Halted() {
		t.Error("new engine is halted")
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, cfg *config.Config)
		wantErr error
	}{
		{
			name: "missing api key",
			mutate: func(t *testing.T, cfg *config.Config) {
				t.Setenv("GOOGLE_API_KEY", "")
				cfg.Model.Provider = "google"
				cfg.Model.SafetyProvider = "google"
				cfg.Model.APIKey = ""
			},
			wantErr: llm.ErrMissingAPIKey,
		},
		{
			name: "missing prompts file",
			mutate: func(t *testing.T, cfg *config.Config) {
				cfg.Model.PromptsFile = filepath.Join(t.TempDir(), "absent.yaml")
			},
			wantErr: os.ErrNotExist,
		},
		{
			name: "missing patterns file",
			mutate: func(t *testing.T, cfg *config.Config) {
				t.Setenv("GOOGLE_API_KEY", "test-key")
				cfg.Engine.Safety.PatternsFile = filepath.Join(t.TempDir(), "absent.yaml")
			},
			wantErr: os.ErrNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(t, cfg)

			_, err := pipeline.New(cfg, accuracy.NewTracker(), discard)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewOffline(t *testing.T) {
	stub := &stubProvider{}
	stubProviders(t, stub)

	tracker := accuracy.NewTracker()
	eng, err := pipeline.NewOffline(testConfig(t), tracker, discard)
	if err != nil {
		t.Fatalf("NewOffline() error = %v", err)
	}

	d, err := eng.Classify(context.Background(), engine.Request{
		DocumentID: "doc-offline",
		Content:    content(),
		Drafts: []consensus.Draft{
			{Category: category.Sensitive, RawConfidence: 0.9, PassIndex: 1, CitedExcerpts: []string{"Internal distribution only"}},
			{Category: category.Sensitive, RawConfidence: 0.85, PassIndex: 2},
		},
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if d.FinalCategory != category.Sensitive {
		t.Errorf("FinalCategory = %s, want %s", d.FinalCategory, category.Sensitive)
	}
	if !d.Safety.IsSafe {
		t.Errorf("Safety = %+v, want safe", d.Safety)
	}
	if stub.calls != 0 {
		t.Errorf("offline engine made %d model calls", stub.calls)
	}
	if tracker.Snapshot().TotalPredictions != 1 {
		t.Errorf("TotalPredictions = %d, want 1", tracker.Snapshot().TotalPredictions)
	}

	_, err = eng.Classify(context.Background(), engine.Request{DocumentID: "doc-nodrafts", Content: content()})
	if !errors.Is(err, engine.ErrInvalidRequest) {
		t.Errorf("Classify() without drafts error = %v, want ErrInvalidRequest", err)
	}
}
