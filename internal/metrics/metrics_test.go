package metrics

import (
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/fieldsim/internal/field"
	"github.com/san-kum/fieldsim/internal/queue"
)

func flow(u, v float32) *field.Field {
	return field.Constant([4]float32{u, v, 0, 0})(4, 4)
}

func TestEnergy(t *testing.T) {
	m := NewEnergy()
	m.Observe(flow(1, 0), 0)
	m.Observe(flow(0, 2), 1)
	if got := m.Value(); math.Abs(got-1.25) > 1e-9 {
		t.Errorf("expected mean energy 1.25, got %f", got)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()
	m.Observe(field.Zero(4, 4), 0)
	m.Observe(flow(1, 0), 1)
	m.Observe(flow(2, 0), 2)
	if got := m.Value(); math.Abs(got-3) > 1e-9 {
		t.Errorf("expected drift 3, got %f", got)
	}
}

func TestStability(t *testing.T) {
	m := NewStability(1)
	if m.Value() != 1 {
		t.Error("expected stability 1 with no samples")
	}
	m.Observe(flow(0.5, 0), 0)
	m.Observe(flow(3, 0), 1)
	nan := flow(0, 0)
	nan.Pix[0] = float32(math.NaN())
	m.Observe(nan, 2)
	m.Observe(flow(0, 0.1), 3)
	if got := m.Value(); got != 0.5 {
		t.Errorf("expected stability 0.5, got %f", got)
	}
}

func TestStandardNames(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Standard() {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
		m.Observe(flow(0, 0), 0)
		if math.IsNaN(m.Value()) {
			t.Errorf("%s is NaN", m.Name())
		}
	}
}

func TestFPSMeter(t *testing.T) {
	now := time.Unix(0, 0)
	m := NewFPSMeter(500*time.Millisecond, func() time.Time { return now })
	for i := 0; i < 10; i++ {
		now = now.Add(20 * time.Millisecond)
		m.Tick()
	}
	if m.FPS() != 0 {
		t.Errorf("rate should not update before the window, got %f", m.FPS())
	}
	for i := 0; i < 15; i++ {
		now = now.Add(20 * time.Millisecond)
		m.Tick()
	}
	if got := m.FPS(); math.Abs(got-50) > 1e-9 {
		t.Errorf("expected 50 fps, got %f", got)
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.OnPass("pressure", 0)
	c.OnPass("pressure", 1)
	c.OnPass("display", 2)
	c.OnStep(1, 3*time.Millisecond)
	c.ObserveMessage(queue.BindModel{ID: "torus"})

	if got := testutil.ToFloat64(c.Frames); got != 1 {
		t.Errorf("frames = %f", got)
	}
	if got := testutil.ToFloat64(c.Passes.WithLabelValues("pressure")); got != 2 {
		t.Errorf("pressure passes = %f", got)
	}
	if got := testutil.ToFloat64(c.Messages.WithLabelValues("model_bind")); got != 1 {
		t.Errorf("bind messages = %f", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "fieldsim_step_seconds_count 1") {
		t.Error("step histogram missing from exposition")
	}
}
