package connection

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hubgate/internal/platform/middleware"
	id "hubgate/pkg/domain"
	"hubgate/pkg/platform/httputil"
)

// Handler exposes the admin API for the connection broker.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/connections", h.HandleIssue)
	r.Get("/admin/connections/{id}", h.HandleGet)
	r.Post("/admin/connections/{id}/rotate", h.HandleRotate)
	r.Post("/admin/connections/{id}/revoke", h.HandleRevoke)
	r.Get("/admin/tenants/{tenantID}/connections", h.HandleListByTenant)
}

// HandleIssue issues a new connection for a tenant.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	issued, err := h.service.Issue(ctx, tenantID, req.Models, req.Target)
	if err != nil {
		h.logger.WarnContext(ctx, "issue connection failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(&issued.Connection, issued.Credential))
}

// HandleGet returns a connection without credential material.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	connID, err := id.ParseConnectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	conn, err := h.service.Get(r.Context(), connID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(conn, ""))
}

// HandleRotate regenerates the connection credential.
func (h *Handler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	connID, err := id.ParseConnectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	issued, err := h.service.Rotate(ctx, connID)
	if err != nil {
		h.logger.WarnContext(ctx, "rotate connection failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(&issued.Connection, issued.Credential))
}

// HandleRevoke revokes the connection. Revoking twice returns 204 both times.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	connID, err := id.ParseConnectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Revoke(r.Context(), connID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListByTenant lists a tenant's connections, revoked included.
func (h *Handler) HandleListByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	conns, err := h.service.ListByTenant(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]ConnectionResponse, 0, len(conns))
	for i := range conns {
		out = append(out, toResponse(&conns[i], ""))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"connections": out})
}
