package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by SecurityError. Callers branch on Code rather
// than on error strings.
const (
	CodeTimeout      = "TIMEOUT_ERROR"
	CodeNetwork      = "NETWORK_ERROR"
	CodeHTTP         = "HTTP_ERROR"
	CodeTokenExpired = "TOKEN_EXPIRED"
)

// SecurityError is the normalized error type returned by the client.
type SecurityError struct {
	Code    string
	Message string
	Status  int // HTTP status for CodeHTTP, zero otherwise
	Err     error
}

func (e *SecurityError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SecurityError) Unwrap() error {
	return e.Err
}

// AsSecurityError unwraps err to a *SecurityError if one is present.
func AsSecurityError(err error) (*SecurityError, bool) {
	var secErr *SecurityError
	if errors.As(err, &secErr) {
		return secErr, true
	}
	return nil, false
}

// normalizeError maps transport failures to a SecurityError. Context
// deadline hits become timeouts, everything else is a network failure.
func normalizeError(err error) *SecurityError {
	if secErr, ok := AsSecurityError(err); ok {
		return secErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SecurityError{Code: CodeTimeout, Message: "request timed out", Err: err}
	}
	return &SecurityError{Code: CodeNetwork, Message: "request failed", Err: err}
}

// statusError classifies a non-2xx response. Unauthorized maps to the
// token-expired code so the client can attempt a refresh.
func statusError(resp *http.Response) *SecurityError {
	if resp.StatusCode == http.StatusUnauthorized {
		return &SecurityError{Code: CodeTokenExpired, Message: "access token rejected", Status: resp.StatusCode}
	}
	return &SecurityError{
		Code:    CodeHTTP,
		Message: fmt.Sprintf("server returned %s", resp.Status),
		Status:  resp.StatusCode,
	}
}
