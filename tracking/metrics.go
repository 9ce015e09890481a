package tracking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcomes recorded by Metrics
const (
	OutcomeSent        = "sent"
	OutcomeFailed      = "failed"
	OutcomeQueueFull   = "dropped_queue_full"
	OutcomeRateLimited = "dropped_rate_limited"
	OutcomeClosed      = "dropped_closed"
)

// Metrics holds the Prometheus metrics for the tracking dispatcher
type Metrics struct {
	EventsTotal *prometheus.CounterVec
}

// NewMetrics creates tracking metrics registered on reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "recsys"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tracking",
				Name:      "events_total",
				Help:      "Total number of tracking events by outcome",
			},
			[]string{"event", "outcome"},
		),
	}
}

func (m *Metrics) observe(kind EventKind, outcome string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(string(kind), outcome).Inc()
}
