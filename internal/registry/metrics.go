package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registrations prometheus.Counter
	ActiveRules   prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hubgate_routing_rules_registered_total",
			Help: "Total number of routing rule registrations applied",
		}),
		ActiveRules: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hubgate_routing_rules_active",
			Help: "Current number of logical models with a live backend",
		}),
	}
}

func (m *Metrics) IncrementRegistrations() {
	m.Registrations.Inc()
}

func (m *Metrics) SetActiveRules(n int) {
	m.ActiveRules.Set(float64(n))
}
