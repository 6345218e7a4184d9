package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveScan("approved", "", 0.01)
	m.ObserveScan("denied", "invalid_pin", 0.02)
	m.ObserveScan("denied", "invalid_pin", 0.02)
	m.PassIssued(true)
	m.PassIssued(false)
	m.AlertDispatched("delivered")

	if got := counterValue(t, reg, "gatepass_scans_total", map[string]string{"decision": "denied", "reason": "invalid_pin"}); got != 2 {
		t.Fatalf("expected 2 invalid_pin denials, got %v", got)
	}
	if got := counterValue(t, reg, "gatepass_passes_issued_total", nil); got != 2 {
		t.Fatalf("expected 2 passes issued, got %v", got)
	}
	if got := counterValue(t, reg, "gatepass_pass_mail_failures_total", nil); got != 1 {
		t.Fatalf("expected 1 mail failure, got %v", got)
	}
	if got := counterValue(t, reg, "gatepass_alert_dispatch_total", map[string]string{"result": "delivered"}); got != 1 {
		t.Fatalf("expected 1 delivered alert, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveScan("approved", "", 1)
	m.PassIssued(false)
	m.AlertDispatched("failed")
}
