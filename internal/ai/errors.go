package ai

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrMissingAPIKey is returned when a hosted provider has no key configured.
	ErrMissingAPIKey = errors.New("api key is missing")
	// ErrEmptyResponse is returned when the backend produced no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// APIError is a provider error with its HTTP status when known.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Provider   string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("api error")
	if e.Provider != "" {
		fmt.Fprintf(&b, ": provider=%s", e.Provider)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// AuthError indicates authentication/authorization failures (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.APIError.Error())
}

// RateLimitError indicates 429 responses.
type RateLimitError struct{ *APIError }

func (e *RateLimitError) Error() string { return fmt.Sprintf("rate limited: %s", e.APIError.Error()) }

// ModelNotFoundError indicates the requested model is not available.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", e.APIError.Error())
}

// BadRequestError indicates a 4xx request problem (e.g., 400 validation).
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// QuotaExceededError indicates billing/quota problems.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.APIError.Error())
}

// ServerError indicates 5xx errors from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("provider error: %s", e.APIError.Error()) }

// UnreachableError indicates the endpoint could not be reached (e.g., local Ollama down).
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// classifyError maps SDK and transport errors to the typed errors above.
func classifyError(provider, host string, err error) error {
	if err == nil {
		return nil
	}
	apiErr := &APIError{Provider: provider, Err: err}

	var oaErr *openai.APIError
	var oaReq *openai.RequestError
	switch {
	case errors.As(err, &oaErr):
		apiErr.StatusCode = oaErr.HTTPStatusCode
		apiErr.Message = oaErr.Message
		if code, ok := oaErr.Code.(string); ok {
			apiErr.Code = code
		}
	case errors.As(err, &oaReq):
		apiErr.StatusCode = oaReq.HTTPStatusCode
		if oaReq.Err != nil {
			apiErr.Message = oaReq.Err.Error()
		}
	default:
		if isNetworkErr(err) {
			return &UnreachableError{Host: host, Err: err}
		}
		// Anthropic errors carry their type in the message text.
		apiErr.Message = err.Error()
		apiErr.StatusCode = statusFromText(apiErr.Message)
	}

	sc, msg, code := apiErr.StatusCode, apiErr.Message, apiErr.Code
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr}
	case sc == http.StatusNotFound:
		if code == "model_not_found" || containsAllFold(msg, "model", "not", "found") || containsFold(msg, "not_found_error") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	case code == "quota_exceeded" || containsAnyFold(msg, "quota", "billing", "insufficient_quota"):
		return &QuotaExceededError{APIError: apiErr}
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

// statusFromText recovers a status from error text when the SDK does not
// expose it as a field.
func statusFromText(msg string) int {
	lower := strings.ToLower(msg)
	switch {
	case containsAnyFold(lower, "authentication_error", "permission_error", "401", "unauthorized"):
		return http.StatusUnauthorized
	case containsAnyFold(lower, "rate_limit_error", "429", "rate limit"):
		return http.StatusTooManyRequests
	case containsAnyFold(lower, "not_found_error", "404"):
		return http.StatusNotFound
	case containsAnyFold(lower, "overloaded_error", "api_error", "500", "502", "503", "529"):
		return http.StatusServiceUnavailable
	case containsAnyFold(lower, "invalid_request_error", "400"):
		return http.StatusBadRequest
	}
	return 0
}

func isNetworkErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return containsAnyFold(err.Error(), "connection refused", "no such host", "connection reset")
}

func containsAllFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if !containsFold(s, sub) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	if s == "" || sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
