// Package metrics registers the outbox relay's Prometheus series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Backlog         prometheus.Gauge
	Relayed         prometheus.Counter
	Failures        prometheus.Counter
	PublishDuration prometheus.Histogram
	PassDuration    prometheus.Histogram
	BatchSize       prometheus.Histogram
}

// New registers with reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	seconds := prometheus.ExponentialBuckets(0.001, 2.5, 9)
	return &Metrics{
		Backlog: f.NewGauge(prometheus.GaugeOpts{
			Name: "pixpax_outbox_backlog",
			Help: "Outbox records not yet relayed",
		}),
		Relayed: f.NewCounter(prometheus.CounterOpts{
			Name: "pixpax_outbox_relayed_total",
			Help: "Outbox records acknowledged by Kafka and marked relayed",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "pixpax_outbox_failures_total",
			Help: "Backlog reads or record publishes that failed",
		}),
		PublishDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixpax_outbox_publish_seconds",
			Help:    "Time to publish one batch",
			Buckets: seconds,
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixpax_outbox_pass_seconds",
			Help:    "Time for one relay pass",
			Buckets: seconds,
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixpax_outbox_batch_size",
			Help:    "Records read per pass",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}
