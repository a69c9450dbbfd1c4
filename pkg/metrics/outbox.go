package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics counts relay outcomes per event type.
type OutboxMetrics struct {
	events *prometheus.CounterVec
}

// NewOutboxMetrics registers the relay counter on reg. A nil registerer
// yields a no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events handled by the relay, by result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(events)
	return &OutboxMetrics{events: events}
}

// Published records a delivered event.
func (m *OutboxMetrics) Published(eventType string) { m.inc(eventType, "published") }

// Failed records a retryable publish failure.
func (m *OutboxMetrics) Failed(eventType string) { m.inc(eventType, "failed") }

// DeadLettered records an event moved to the DLQ.
func (m *OutboxMetrics) DeadLettered(eventType string) { m.inc(eventType, "dead_lettered") }

func (m *OutboxMetrics) inc(eventType, result string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), result).Inc()
}
