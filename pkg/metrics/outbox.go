package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records publish outcomes from the outbox publisher loop.
type OutboxMetrics struct {
	publishes    *prometheus.CounterVec
	batchLatency prometheus.Histogram
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publishes_total",
		Help: "Outbox publish attempts by outcome.",
	}, []string{"outcome"})
	batchLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(publishes, batchLatency)
	return &OutboxMetrics{
		publishes:    publishes,
		batchLatency: batchLatency,
	}
}

// IncPublish increments the counter for the given outcome.
func (o *OutboxMetrics) IncPublish(outcome string) {
	if o == nil || o.publishes == nil {
		return
	}
	o.publishes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveBatch records the duration of a publish batch.
func (o *OutboxMetrics) ObserveBatch(duration time.Duration) {
	if o == nil || o.batchLatency == nil {
		return
	}
	o.batchLatency.Observe(duration.Seconds())
}
