package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	r := New()
	c := r.Counter("vhc_responses_total", "Total responses")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("counter = %d, want 3", c.Value())
	}
	// Same name returns the same counter.
	if r.Counter("vhc_responses_total", "").Value() != 3 {
		t.Error("re-registered counter lost its value")
	}
}

func TestGauge(t *testing.T) {
	r := New()
	g := r.Gauge("vhc_open_inspections", "")
	g.Set(5)
	g.Inc()
	g.Dec()
	if g.Value() != 5 {
		t.Errorf("gauge = %v, want 5", g.Value())
	}
}

func TestHistogram(t *testing.T) {
	r := New()
	h := r.Histogram("vhc_score_duration_seconds", "", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(10)

	out := r.Render()
	if !strings.Contains(out, `vhc_score_duration_seconds_bucket{le="0.1"} 1`) {
		t.Errorf("missing first bucket:\n%s", out)
	}
	if !strings.Contains(out, `vhc_score_duration_seconds_bucket{le="1"} 2`) {
		t.Errorf("buckets not cumulative:\n%s", out)
	}
	if !strings.Contains(out, `vhc_score_duration_seconds_bucket{le="+Inf"} 3`) {
		t.Errorf("missing +Inf bucket:\n%s", out)
	}
	if !strings.Contains(out, "vhc_score_duration_seconds_count 3") {
		t.Errorf("missing count:\n%s", out)
	}
}

func TestHistogram_Since(t *testing.T) {
	r := New()
	h := r.Histogram("d", "", nil)
	h.Since(time.Now().Add(-time.Millisecond))
	if h.count != 1 {
		t.Errorf("count = %d, want 1", h.count)
	}
}

func TestLabels(t *testing.T) {
	r := New()
	r.Counter(Label("vhc_events_total", "subject", "vhc.response.submitted"), "Events published").Inc()
	r.Counter(Label("vhc_events_total", "subject", "vhc.response.voided"), "Events published").Add(2)

	out := r.Render()
	if !strings.Contains(out, `vhc_events_total{subject="vhc.response.submitted"} 1`) {
		t.Errorf("missing labeled series:\n%s", out)
	}
	if !strings.Contains(out, `vhc_events_total{subject="vhc.response.voided"} 2`) {
		t.Errorf("missing labeled series:\n%s", out)
	}
	if strings.Count(out, "# TYPE vhc_events_total counter") != 1 {
		t.Errorf("TYPE line should appear once:\n%s", out)
	}
}

func TestLabel_BadPairs(t *testing.T) {
	if got := Label("m", "only-key"); got != "m" {
		t.Errorf("odd pairs should return bare name, got %q", got)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Gauge("up", "").Set(1)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "up 1") {
		t.Errorf("handler output: %d %s", rec.Code, rec.Body.String())
	}
}
