package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records verification outcomes and provider latency.
type PaymentMetrics struct {
	verifications   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Payment verification attempts by outcome.",
	}, []string{"outcome"})
	providerLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_provider_latency_seconds",
		Help:    "Latency of provider calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(verifications, providerLatency)
	return &PaymentMetrics{
		verifications:   verifications,
		providerLatency: providerLatency,
	}
}

// IncVerification increments the counter for the given outcome.
func (p *PaymentMetrics) IncVerification(outcome string) {
	if p == nil || p.verifications == nil {
		return
	}
	p.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveProviderLatency records the duration of a provider call.
func (p *PaymentMetrics) ObserveProviderLatency(operation string, duration time.Duration) {
	if p == nil || p.providerLatency == nil {
		return
	}
	p.providerLatency.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
