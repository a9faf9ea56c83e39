// Package httptransport assembles the hub's HTTP surface: the admin API for
// models, connections, and grants, the tenant-facing data plane, and the
// operational endpoints. Handlers live with their domains; this package only
// mounts them behind the shared middleware stack.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hubgate/internal/access"
	"hubgate/internal/connection"
	"hubgate/internal/gateway"
	"hubgate/internal/platform/health"
	"hubgate/internal/platform/middleware"
	"hubgate/internal/registry"
)

// Deps collects the mounted handlers. All are required except Health.
type Deps struct {
	Registry    *registry.Handler
	Connections *connection.Handler
	Access      *access.Handler
	Gateway     *gateway.Handler
	Health      *health.Handler
}

// NewRouter wires every endpoint behind the shared middleware stack.
func NewRouter(deps Deps, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Admin control plane.
	deps.Registry.Register(r)
	deps.Connections.Register(r)
	deps.Access.Register(r)

	// Tenant data plane.
	deps.Gateway.Register(r)

	return r
}
