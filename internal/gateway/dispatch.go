package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	dErrors "hubgate/pkg/domain-errors"
)

// BackendStatusError carries the upstream HTTP status alongside a backend
// failure so the HTTP layer can relay it instead of a generic 502. It
// unwraps to a domain error with the backend-error code, mirroring
// RateLimitedError.
type BackendStatusError struct {
	Status int
	err    error
}

func (e *BackendStatusError) Error() string { return e.err.Error() }
func (e *BackendStatusError) Unwrap() error { return e.err }

// Dispatcher forwards a prepared request to the physical backend. The
// timeout bounds the whole exchange so a dead backend surfaces as an error
// instead of a hung caller. There are no retries here: model invocations
// are not assumed idempotent.
type Dispatcher struct {
	client *http.Client
}

func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{client: &http.Client{Timeout: timeout}}
}

// Do sends the request to the backend named by the resolved routing rule.
// The caller owns the returned response body. Backend 5xx responses and
// transport failures come back as errors; anything below 500 is the
// backend's answer and is passed through untouched.
func (d *Dispatcher) Do(ctx context.Context, state *RequestState) (*http.Response, error) {
	target, err := buildTargetURL(state)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, state.Method, target, bytes.NewReader(state.Body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "building backend request")
	}
	copyHeader(req.Header, state.Header)
	req.Header.Set("Authorization", "Bearer "+state.BackendCredential)

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			// A hung backend is a backend failure, same kind callers
			// branch on for 5xx; the status distinguishes it.
			return nil, &BackendStatusError{
				Status: http.StatusGatewayTimeout,
				err:    dErrors.New(dErrors.CodeBackendError, "backend did not respond in time"),
			}
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBackendError, "backend request failed")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &BackendStatusError{
			Status: resp.StatusCode,
			err: dErrors.New(dErrors.CodeBackendError,
				fmt.Sprintf("backend returned status %d", resp.StatusCode)),
		}
	}
	return resp, nil
}

func buildTargetURL(state *RequestState) (string, error) {
	base, err := url.Parse(state.Rule.Deployment.EndpointURL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "invalid backend endpoint")
	}
	if state.SubPath != "" {
		base.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(state.SubPath, "/")
	}
	base.RawQuery = state.Query.Encode()
	return base.String(), nil
}

func copyHeader(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func isClientTimeout(err error) bool {
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}
