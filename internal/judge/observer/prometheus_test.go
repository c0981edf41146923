package observer

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusRecordsVerdicts(t *testing.T) {
	p := NewPrometheus()
	ctx := context.Background()
	p.ObserveVerdict(ctx, "submit", "wrong_answer")
	p.ObserveVerdict(ctx, "submit", "wrong_answer")
	p.ObserveLoopError(ctx, "fetcher")
	p.ObserveCompile(ctx, "CPP", "success", 0.4)
	p.ObserveRun(ctx, "CPP", "success", 0.01, 2048)

	families, err := p.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				found[mf.GetName()] += c.GetValue()
			}
		}
	}
	if found["codejudge_verdict_total"] != 2 {
		t.Fatalf("expected 2 verdicts, got %v", found["codejudge_verdict_total"])
	}
	if found["codejudge_loop_error_total"] != 1 {
		t.Fatalf("expected 1 loop error, got %v", found["codejudge_loop_error_total"])
	}
	if found["codejudge_compile_total"] != 1 {
		t.Fatalf("expected 1 compile, got %v", found["codejudge_compile_total"])
	}
}

func TestPrometheusHandlerServesExposition(t *testing.T) {
	p := NewPrometheus()
	p.ObserveVerdict(context.Background(), "run", "success")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `codejudge_verdict_total{mode="run",status="success"} 1`) {
		t.Fatalf("expected verdict series in body")
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(Nop); !ok {
		t.Fatalf("expected Nop for nil recorder")
	}
	p := NewPrometheus()
	if OrNop(p) != MetricsRecorder(p) {
		t.Fatalf("expected recorder to pass through")
	}
}
