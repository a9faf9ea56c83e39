package gateway

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "hubgate/pkg/domain-errors"
	"hubgate/pkg/platform/httputil"
)

// maxRequestBody bounds inbound payloads. Prompt payloads are small; this
// mostly guards against accidental uploads.
const maxRequestBody = 10 << 20

// Handler exposes the data plane over HTTP. Tenant workloads call
// /v1/models/{model}/... with their connection credential as a bearer
// token; everything after the model segment is forwarded to the backend.
type Handler struct {
	router *Router
}

func NewHandler(router *Router) *Handler {
	if router == nil {
		panic("gateway.NewHandler: router is required")
	}
	return &Handler{router: router}
}

func (h *Handler) Register(r chi.Router) {
	r.Handle("/v1/models/{model}", http.HandlerFunc(h.route))
	r.Handle("/v1/models/{model}/*", http.HandlerFunc(h.route))
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	credential, ok := bearerToken(r)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "missing bearer credential"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "reading request body"))
		return
	}

	req := &InboundRequest{
		Credential: credential,
		Model:      chi.URLParam(r, "model"),
		Method:     r.Method,
		SubPath:    chi.URLParam(r, "*"),
		Query:      r.URL.Query(),
		Header:     r.Header,
		Body:       body,
	}

	resp, err := h.router.Route(r.Context(), req)
	if err != nil {
		var limited *RateLimitedError
		if errors.As(err, &limited) {
			httputil.WriteRateLimited(w, limited.RetryAfter, limited.Error())
			return
		}
		var backendErr *BackendStatusError
		if errors.As(err, &backendErr) {
			httputil.WriteErrorStatus(w, backendErr.Status, err)
			return
		}
		httputil.WriteError(w, err)
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func bearerToken(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(raw) <= len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(raw[len(prefix):]), true
}
