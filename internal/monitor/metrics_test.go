package monitor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordVerification(t *testing.T) {
	m := NewMetrics()

	m.RecordVerification("ok", 0.2)
	m.RecordVerification("ok", 0.3)
	m.RecordVerification("hint", 1.5)

	if got := testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok verifications = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("hint")); got != 1 {
		t.Errorf("hint verifications = %v, want 1", got)
	}
}

func TestRecordCheckerError(t *testing.T) {
	m := NewMetrics()

	m.RecordCheckerError("timeout")
	m.RecordCheckerError("timeout")

	if got := testutil.ToFloat64(m.CheckerErrors.WithLabelValues("timeout")); got != 2 {
		t.Errorf("timeout errors = %v, want 2", got)
	}
}

func TestNewMetrics_DedicatedRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()
	if a.Registry == b.Registry {
		t.Fatal("expected separate registries")
	}

	a.SeenFailures.Set(3)
	families, err := a.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "relay_seen_failures" {
			found = true
		}
	}
	if !found {
		t.Error("relay_seen_failures not exported")
	}
}
