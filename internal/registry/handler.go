package registry

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hubgate/internal/platform/middleware"
	id "hubgate/pkg/domain"
	dErrors "hubgate/pkg/domain-errors"
	"hubgate/pkg/platform/httputil"
)

// Handler exposes the admin API for the model registry.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/models", h.HandleRegister)
	r.Get("/admin/models/{name}", h.HandleResolve)
	r.Post("/admin/models/{name}/decommission", h.HandleDecommission)
}

// RegisterRequest declares a logical model and the physical deployment
// serving it.
type RegisterRequest struct {
	Name           string   `json:"name"`
	Format         string   `json:"format"`
	Version        string   `json:"version"`
	AllowedRegions []string `json:"allowed_regions,omitempty"`

	BackendID     string `json:"backend_id"`
	Region        string `json:"region"`
	CapacityUnits int    `json:"capacity_units"`
	EndpointURL   string `json:"endpoint_url"`

	DefaultAPIVersion string `json:"default_api_version,omitempty"`
	CredentialScope   string `json:"credential_scope,omitempty"`
	RateLimitCalls    int    `json:"rate_limit_calls,omitempty"`
	RateLimitWindowS  int    `json:"rate_limit_window_seconds,omitempty"`
}

// RuleResponse is the external shape of an active routing rule.
type RuleResponse struct {
	Name         string    `json:"name"`
	Format       string    `json:"format"`
	Version      string    `json:"version"`
	BackendID    string    `json:"backend_id"`
	Region       string    `json:"region"`
	EndpointURL  string    `json:"endpoint_url"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toRuleResponse(rule *RoutingRule) RuleResponse {
	return RuleResponse{
		Name:         rule.Model.Name,
		Format:       rule.Model.Format,
		Version:      rule.Model.Version,
		BackendID:    rule.Deployment.BackendID.String(),
		Region:       rule.Deployment.Region,
		EndpointURL:  rule.Deployment.EndpointURL,
		RegisteredAt: rule.RegisteredAt,
	}
}

// HandleRegister registers or replaces the routing rule for a logical model.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rule, err := h.service.Register(ctx,
		LogicalModel{
			Name:           req.Name,
			Format:         req.Format,
			Version:        req.Version,
			AllowedRegions: req.AllowedRegions,
		},
		PhysicalDeployment{
			BackendID:     id.BackendID(req.BackendID),
			Region:        req.Region,
			CapacityUnits: req.CapacityUnits,
			EndpointURL:   req.EndpointURL,
		},
		RoutePolicy{
			DefaultAPIVersion: req.DefaultAPIVersion,
			CredentialScope:   req.CredentialScope,
			RateLimitCalls:    req.RateLimitCalls,
			RateLimitWindow:   time.Duration(req.RateLimitWindowS) * time.Second,
		},
	)
	if err != nil {
		h.logger.WarnContext(ctx, "register model failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRuleResponse(rule))
}

// HandleResolve returns the active routing rule for a logical model.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "model name is required"))
		return
	}

	rule, err := h.service.Resolve(r.Context(), name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRuleResponse(rule))
}

// HandleDecommission retires a model's backend. The name stays known so the
// data plane reports the backend gone rather than the model unknown.
func (h *Handler) HandleDecommission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "model name is required"))
		return
	}

	if err := h.service.Decommission(ctx, name); err != nil {
		h.logger.WarnContext(ctx, "decommission model failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
