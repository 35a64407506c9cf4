// Package metrics exposes Prometheus counters for the capture pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "promo_engine"

// Metrics holds the pipeline counters. All counters are registered on the
// registry given to New, never on the global default registry.
type Metrics struct {
	EventsTotal     *prometheus.CounterVec
	ForwardsTotal   *prometheus.CounterVec
	SweptTotal      prometheus.Counter
	SweepErrors     prometheus.Counter
	FeedFetchErrors *prometheus.CounterVec
}

// New registers the pipeline counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound message events by processing outcome.",
		}, []string{"outcome"}),
		ForwardsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwards_total",
			Help:      "Forwarding attempts by result.",
		}, []string{"result"}),
		SweptTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Promotions deleted by the retention sweeper.",
		}),
		SweepErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_errors_total",
			Help:      "Failed retention sweeps.",
		}),
		FeedFetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_errors_total",
			Help:      "Failed feed polls by source.",
		}, []string{"source"}),
	}
}
