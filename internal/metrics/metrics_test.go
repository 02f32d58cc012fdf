package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Singleton(t *testing.T) {
	if New() != New() {
		t.Error("New() should return the same collector")
	}
}

func TestMetrics_RecordLoad(t *testing.T) {
	m := New()

	before := testutil.ToFloat64(m.loadsTotal.WithLabelValues("success"))
	m.RecordLoad("success", 120*time.Millisecond, true)
	m.RecordLoad("no_token", 0, false)
	m.RecordLoad("", time.Second, true)

	if got := testutil.ToFloat64(m.loadsTotal.WithLabelValues("success")) - before; got != 1 {
		t.Errorf("success loads delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.loadsTotal.WithLabelValues("unknown")); got < 1 {
		t.Errorf("empty outcome should count as unknown, got %v", got)
	}
	// Skipped loads are not timed.
	if n := testutil.CollectAndCount(m.loadDuration, "prediction_history_load_duration_seconds"); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()

	before := testutil.ToFloat64(m.sessionExpired)
	m.RecordSessionExpired()
	if got := testutil.ToFloat64(m.sessionExpired) - before; got != 1 {
		t.Errorf("session expired delta = %v, want 1", got)
	}

	m.SetViewsActive(0)
	m.SetViewsActive(3)
	if got := testutil.ToFloat64(m.viewsActive); got != 3 {
		t.Errorf("views active = %v, want 3", got)
	}

	m.SetAPIHealth(true)
	m.SetAPIHealth(false)
	if got := testutil.ToFloat64(m.apiHealthy); got != 0 {
		t.Errorf("api healthy = %v, want 0", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.RecordLoad("success", time.Second, true)
	m.RecordSessionExpired()
	m.SetViewsActive(1)
	m.SetAPIHealth(true)
}
