package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_RecordRequest(t *testing.T) {
	rec := NewRecorder(prometheus.NewRegistry())

	rec.RecordRequest("user-1", true)
	rec.RecordRequest("user-1", true)
	rec.RecordRequest("user-1", false)
	rec.RecordRequest("user-2", false)

	allowed := rec.requests.WithLabelValues("user-1", "allowed")
	if got := testutil.ToFloat64(allowed); got != 2 {
		t.Errorf("user-1 allowed = %v, want 2", got)
	}
	dropped := rec.requests.WithLabelValues("user-1", "dropped")
	if got := testutil.ToFloat64(dropped); got != 1 {
		t.Errorf("user-1 dropped = %v, want 1", got)
	}
	other := rec.requests.WithLabelValues("user-2", "dropped")
	if got := testutil.ToFloat64(other); got != 1 {
		t.Errorf("user-2 dropped = %v, want 1", got)
	}
}

func TestRecorder_DropBurstCallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	cb := rec.DropBurstCallback("telemetry")
	cb(3)
	cb(5)

	count, err := testutil.GatherAndCount(reg, "tickgate_drop_burst_size")
	if err != nil {
		t.Fatalf("GatherAndCount() = %v", err)
	}
	if count != 1 {
		t.Errorf("gathered %d drop burst series, want 1", count)
	}
}
