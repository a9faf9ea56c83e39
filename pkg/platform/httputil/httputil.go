package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	dErrors "hubgate/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	// The response body may be incomplete, but headers are already sent.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
// It translates transport-agnostic domain errors into HTTP status codes and error responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": string(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), response)
		return
	}

	// Fallback for unexpected errors
	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": string(dErrors.CodeInternal),
	})
}

// WriteErrorStatus writes a domain error envelope under an explicit HTTP
// status, overriding the code's default mapping. Used when the status comes
// from somewhere else, like an upstream backend response.
func WriteErrorStatus(w http.ResponseWriter, status int, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, status, map[string]string{
			"error": string(dErrors.CodeInternal),
		})
		return
	}
	response := map[string]string{
		"error": string(domainErr.Code),
	}
	if domainErr.Message != "" {
		response["error_description"] = domainErr.Message
	}
	WriteJSON(w, status, response)
}

// WriteRateLimited writes a 429 response with a Retry-After hint in seconds.
func WriteRateLimited(w http.ResponseWriter, retryAfterSeconds int, msg string) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	response := map[string]string{
		"error":       string(dErrors.CodeRateLimited),
		"retry_after": strconv.Itoa(retryAfterSeconds),
	}
	if msg != "" {
		response["error_description"] = msg
	}
	WriteJSON(w, http.StatusTooManyRequests, response)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case dErrors.CodeUnauthorized, dErrors.CodeModelNotAllowed:
		return http.StatusForbidden
	case dErrors.CodeUnknownModel:
		// A validation failure at issue time, not a routing miss.
		return http.StatusUnprocessableEntity
	case dErrors.CodeBackendUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeConstraintViolation:
		return http.StatusPreconditionFailed
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeBackendError:
		return http.StatusBadGateway
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
