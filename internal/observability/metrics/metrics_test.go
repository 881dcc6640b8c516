package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if v, ok := want[pair.GetName()]; ok {
			if v != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}

func TestRelayMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)

	m.ObserveInbound("secondary", "message", "text")
	m.ObserveInbound("secondary", "message", "text")
	m.ObservePersist("status", errors.New("boom"))
	m.ObserveTransition("INITIAL", "DEPARTMENT_SELECTED", "advanced")
	m.ObserveOutbound("secondary", "list", nil)
	m.ObserveDropped("invalid_json")
	m.ObserveWebhookLatency("webhook2", 0.25)

	if got := counterValue(t, reg, "botpe_webhook_inbound_events_total", map[string]string{"account": "secondary", "kind": "message", "type": "text"}); got != 2 {
		t.Fatalf("inbound counter = %v, want 2", got)
	}
	if got := counterValue(t, reg, "botpe_webhook_persist_total", map[string]string{"kind": "status", "status": "error"}); got != 1 {
		t.Fatalf("persist counter = %v, want 1", got)
	}
	if got := counterValue(t, reg, "botpe_bot_outbound_total", map[string]string{"prompt": "list", "status": "ok"}); got != 1 {
		t.Fatalf("outbound counter = %v, want 1", got)
	}
}

func TestRelayMetricsNilSafe(t *testing.T) {
	var m *RelayMetrics
	m.ObserveInbound("a", "message", "text")
	m.ObservePersist("message", nil)
	m.ObserveDropped("x")
	m.ObserveTransition("a", "b", "c")
	m.ObserveOutbound("a", "list", nil)
	m.ObserveWebhookLatency("webhook", 0.1)
}
