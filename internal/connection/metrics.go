package connection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Issued       prometheus.Counter
	Rotated      prometheus.Counter
	Revoked      prometheus.Counter
	AuthFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hubgate_connections_issued_total",
			Help: "Total number of connections issued",
		}),
		Rotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hubgate_connections_rotated_total",
			Help: "Total number of connection credential rotations",
		}),
		Revoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hubgate_connections_revoked_total",
			Help: "Total number of connections revoked",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hubgate_connection_auth_failures_total",
			Help: "Total number of failed connection authentications",
		}),
	}
}

func (m *Metrics) IncrementIssued()       { m.Issued.Inc() }
func (m *Metrics) IncrementRotated()      { m.Rotated.Inc() }
func (m *Metrics) IncrementRevoked()      { m.Revoked.Inc() }
func (m *Metrics) IncrementAuthFailures() { m.AuthFailures.Inc() }
