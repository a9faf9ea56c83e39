package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Requests         *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hubgate_gateway_requests_total",
			Help: "Routed data-plane requests by logical model and outcome",
		}, []string{"model", "outcome"}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hubgate_gateway_rejections_total",
			Help: "Requests rejected before dispatch, by error code",
		}, []string{"code"}),
		DispatchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hubgate_gateway_dispatch_duration_seconds",
			Help:    "Time spent waiting on the physical backend",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"backend_id"}),
	}
}

func (m *Metrics) ObserveRequest(model, outcome string) {
	m.Requests.WithLabelValues(model, outcome).Inc()
}

func (m *Metrics) ObserveRejection(code string) {
	m.Rejections.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveDispatch(backendID string, elapsed time.Duration) {
	m.DispatchDuration.WithLabelValues(backendID).Observe(elapsed.Seconds())
}
