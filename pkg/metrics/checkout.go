package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks store-group outcomes and gateway latency.
type CheckoutMetrics struct {
	groups  *prometheus.CounterVec
	latency *prometheus.HistogramVec
	gateway *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on reg. A nil registerer
// yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	groups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "store_groups_total",
		Help:      "Checkout store groups by outcome code.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "store_group_duration_seconds",
		Help:      "Time to settle one checkout store group.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "gateway_request_duration_seconds",
		Help:      "Payment gateway intent creation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "result"})
	reg.MustRegister(groups, latency, gateway)
	return &CheckoutMetrics{groups: groups, latency: latency, gateway: gateway}
}

// ObserveGroup records one store group; outcome is "committed" or an error code.
func (c *CheckoutMetrics) ObserveGroup(outcome string, took time.Duration) {
	if c == nil || c.groups == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.groups.WithLabelValues(label).Inc()
	c.latency.WithLabelValues(label).Observe(took.Seconds())
}

// ObserveGateway records one gateway call.
func (c *CheckoutMetrics) ObserveGateway(provider string, ok bool, took time.Duration) {
	if c == nil || c.gateway == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	c.gateway.WithLabelValues(normalizeLabel(provider), result).Observe(took.Seconds())
}
