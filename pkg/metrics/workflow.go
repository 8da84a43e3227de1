package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkflowMetrics counts conversation steps, webhook outcomes and lifecycle
// transitions that were refused.
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
	webhooks    *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow counters on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_transitions_total",
		Help: "Conversation step changes by request type.",
	}, []string{"type", "from", "to"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Provider webhook deliveries by outcome.",
	}, []string{"provider", "outcome"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_transitions_rejected_total",
		Help: "Status updates refused by the allowed-transition table.",
	}, []string{"kind", "from", "to"})
	reg.MustRegister(transitions, webhooks, rejected)
	return &WorkflowMetrics{
		transitions: transitions,
		webhooks:    webhooks,
		rejected:    rejected,
	}
}

// IncTransition records a conversation moving between steps.
func (m *WorkflowMetrics) IncTransition(kind, from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(kind), stepLabel(from), stepLabel(to)).Inc()
}

// IncWebhook records the outcome of a provider callback.
func (m *WorkflowMetrics) IncWebhook(provider, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncRejected records a lifecycle status update that was not applied.
func (m *WorkflowMetrics) IncRejected(kind, from, to string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(kind), normalizeLabel(from), normalizeLabel(to)).Inc()
}

func stepLabel(step string) string {
	if step == "" {
		return "none"
	}
	return step
}
