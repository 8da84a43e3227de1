package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWorkflowMetricsCountsLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkflowMetrics(reg)

	m.IncTransition("return", "", "awaiting_order_id")
	m.IncTransition("return", "", "awaiting_order_id")
	m.IncWebhook("razorpay", "processed")
	m.IncRejected("return", "completed", "")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "conversation_transitions_total", "from", "none"); err != nil || got != 2 {
		t.Fatalf("expected 2 transitions from none, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "webhook_events_total", "outcome", "processed"); err != nil || got != 1 {
		t.Fatalf("expected 1 processed webhook, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "lifecycle_transitions_rejected_total", "to", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected empty target to be labelled unknown, got %f (%v)", got, err)
	}
}

func TestWorkflowMetricsNilSafe(t *testing.T) {
	var m *WorkflowMetrics
	m.IncTransition("return", "a", "b")
	m.IncWebhook("shiprocket", "ignored")
	m.IncRejected("exchange", "a", "b")

	unregistered := NewWorkflowMetrics(nil)
	unregistered.IncWebhook("shiprocket", "ignored")
}
