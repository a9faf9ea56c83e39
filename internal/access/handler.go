package access

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hubgate/internal/platform/middleware"
	id "hubgate/pkg/domain"
	"hubgate/pkg/platform/httputil"
)

// Handler exposes the admin API for capability grants.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/grants", h.HandleGrant)
	r.Post("/admin/grants/revoke", h.HandleRevoke)
	r.Get("/admin/principals/{id}/grants", h.HandleHistory)
	r.Get("/admin/access/check", h.HandleCheck)
}

// GrantRequest is the payload for grant and revoke calls.
type GrantRequest struct {
	ActorID       string `json:"actor_id"`
	ActorType     string `json:"actor_type"`
	PrincipalID   string `json:"principal_id"`
	PrincipalType string `json:"principal_type"`
	ResourceScope string `json:"resource_scope"`
	Capability    string `json:"capability"`
}

func (r *GrantRequest) parse() (actor, target Principal, capability Capability, err error) {
	actorID, err := id.ParsePrincipalID(r.ActorID)
	if err != nil {
		return actor, target, capability, err
	}
	targetID, err := id.ParsePrincipalID(r.PrincipalID)
	if err != nil {
		return actor, target, capability, err
	}
	capability, err = ParseCapability(r.Capability)
	if err != nil {
		return actor, target, capability, err
	}
	actor = Principal{ID: actorID, Type: PrincipalType(r.ActorType)}
	target = Principal{ID: targetID, Type: PrincipalType(r.PrincipalType)}
	return actor, target, capability, nil
}

type grantResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	PrincipalID   string `json:"principal_id"`
	ResourceScope string `json:"resource_scope"`
	Capability    string `json:"capability"`
	RecordedAt    string `json:"recorded_at"`
}

func toGrantResponse(r GrantRecord) grantResponse {
	return grantResponse{
		ID:            r.ID.String(),
		Kind:          string(r.Kind),
		PrincipalID:   r.PrincipalID.String(),
		ResourceScope: r.ResourceScope,
		Capability:    string(r.Capability),
		RecordedAt:    r.RecordedAt.UTC().Format(time.RFC3339),
	}
}

// HandleGrant records a capability grant.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[GrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	actor, target, capability, err := req.parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Grant(ctx, actor, target, req.ResourceScope, capability)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toGrantResponse(*record))
}

// HandleRevoke appends a revocation row.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[GrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	actor, target, capability, err := req.parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Revoke(ctx, actor, target, req.ResourceScope, capability); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHistory returns the principal's full grant ledger.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	principalID, err := id.ParsePrincipalID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.History(r.Context(), principalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]grantResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toGrantResponse(record))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": out})
}

// HandleCheck answers whether a principal currently holds a capability.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	principalID, err := id.ParsePrincipalID(q.Get("principal_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	capability, err := ParseCapability(q.Get("capability"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	allowed, err := h.service.Check(r.Context(), principalID, q.Get("resource_scope"), capability)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}
