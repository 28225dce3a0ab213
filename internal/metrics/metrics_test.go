package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/internal/metrics"
	"github.com/JaimeStill/arbiter/internal/safety"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)

	unsafe := safety.Safe()
	unsafe.IsSafe = false
	unsafe.LayerReached = safety.LayerPattern

	c.ObserveDecision(&engine.Decision{
		FinalCategory:     category.Public,
		AutoApprovalScore: 0.9,
		Safety:            safety.Safe(),
		Citations:         []citations.Resolved{{Resolved: false}},
	}, 120*time.Millisecond)
	c.ObserveDecision(&engine.Decision{
		FinalCategory:  category.Unsafe,
		RequiresReview: true,
		Safety:         unsafe,
	}, 80*time.Millisecond)
	c.ObservePass(engine.PassOK)
	c.ObservePass(engine.PassTimeout)
	c.ObserveCorrection(engine.Correction{Original: category.Public, Corrected: category.Sensitive})

	count, err := testutil.GatherAndCount(reg, "arbiter_engine_decisions_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error: %v", err)
	}
	if count != 2 {
		t.Errorf("decision series = %d, want 2", count)
	}

	expected := `
# HELP arbiter_safety_rejections_total Unsafe verdicts by the last layer reached
# TYPE arbiter_safety_rejections_total counter
arbiter_safety_rejections_total{layer="pattern"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "arbiter_safety_rejections_total"); err != nil {
		t.Error(err)
	}

	expected = `
# HELP arbiter_citations_unresolved_total Cited excerpts that matched no block
# TYPE arbiter_citations_unresolved_total counter
arbiter_citations_unresolved_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "arbiter_citations_unresolved_total"); err != nil {
		t.Error(err)
	}
}

func TestRegisterAccuracy(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracker := accuracy.NewTracker()
	metrics.RegisterAccuracy(reg, tracker)

	if err := tracker.RecordDecision(context.Background(), category.Public, 0.9, true); err != nil {
		t.Fatalf("RecordDecision() error: %v", err)
	}

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "arbiter_accuracy_auto_approval_rate 1") {
		t.Errorf("metrics body missing auto approval gauge:\n%s", rec.Body.String())
	}
}
