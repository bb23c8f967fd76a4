package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/sanitize"
	"github.com/securedbank/sentinel/internal/security"
)

// timeNow is swapped out by tests exercising expiry paths.
var timeNow = time.Now

// publicPaths are reachable without a bearer token or CSRF token.
var publicPaths = map[string]bool{
	"/login":           true,
	"/register":        true,
	"/forgot-password": true,
	"/reset-password":  true,
}

func isPublicPath(path string) bool {
	return publicPaths[trimAPIPrefix(path)]
}

func isLoginPath(path string) bool {
	return trimAPIPrefix(path) == "/login"
}

func trimAPIPrefix(path string) string {
	return strings.TrimPrefix(strings.TrimPrefix(path, "/api"), "/auth")
}

// bearerToken extracts the raw JWT from the Authorization header.
func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// mutating reports whether the method can change server state.
func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// LoginThrottleInterceptor blocks login POSTs for locked-out
// identifiers before any network I/O and records each outcome. The
// identifier is the email from the request body when present, so
// lockouts track the targeted account rather than the whole client.
func LoginThrottleInterceptor(throttle *security.Throttle) Interceptor {
	return func(req *http.Request, next Next) (*http.Response, error) {
		if req.Method != http.MethodPost || !isLoginPath(req.URL.Path) {
			return next(req)
		}

		identifier := loginIdentifier(req)
		if throttle.IsLocked(identifier) {
			return nil, &SecurityError{
				Code:    CodeHTTP,
				Status:  http.StatusTooManyRequests,
				Message: "too many login attempts, try again later",
			}
		}

		resp, err := next(req)
		if err == nil {
			throttle.RecordAttempt(identifier, true)
		} else if authRejection(err) {
			throttle.RecordAttempt(identifier, false)
		}
		// Transport failures and server errors never count against the
		// lockout; an outage must not lock the account.
		return resp, err
	}
}

// authRejection reports whether the error is the server refusing the
// credentials rather than a transport or server-side failure.
func authRejection(err error) bool {
	secErr, ok := AsSecurityError(err)
	if !ok {
		return false
	}
	return secErr.Status == http.StatusUnauthorized || secErr.Status == http.StatusForbidden
}

// loginIdentifier extracts the email field from a JSON login body,
// restoring the body for downstream readers. Falls back to a shared key
// when the body cannot be parsed.
func loginIdentifier(req *http.Request) string {
	if req.Body == nil {
		return "login"
	}

	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "login"
	}

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &payload) != nil || payload.Email == "" {
		return "login"
	}
	return strings.ToLower(payload.Email)
}

// CSRFInterceptor attaches the user's CSRF token to mutating requests.
// The user is identified from the bearer token payload without
// verifying the signature; an unauthenticated request is passed through
// untouched.
func CSRFInterceptor(csrf *auth.CSRFTokenManager) Interceptor {
	return func(req *http.Request, next Next) (*http.Response, error) {
		if !mutating(req.Method) || req.Header.Get("X-CSRF-Token") != "" {
			return next(req)
		}

		claims := auth.PeekClaims(bearerToken(req))
		if claims == nil || claims.UserID == "" {
			return next(req)
		}

		token, err := csrf.Ensure(claims.UserID)
		if err != nil {
			return nil, normalizeError(err)
		}
		req.Header.Set("X-CSRF-Token", token)
		return next(req)
	}
}

// ValidateInterceptor rejects requests that would fail server-side
// checks before they leave the process: missing or expired bearer
// tokens, dead sessions, and missing or stale CSRF tokens on mutating
// methods. Public paths skip all checks.
func ValidateInterceptor(services *security.Services) Interceptor {
	return func(req *http.Request, next Next) (*http.Response, error) {
		if isPublicPath(req.URL.Path) {
			return next(req)
		}

		raw := bearerToken(req)
		if raw == "" {
			return nil, &SecurityError{Code: CodeTokenExpired, Message: "no access token"}
		}

		claims := auth.PeekClaims(raw)
		if claims == nil || claims.ExpiresAt == nil || claims.ExpiresAt.Before(timeNow()) {
			return nil, &SecurityError{Code: CodeTokenExpired, Message: "access token expired"}
		}

		if claims.SessionID != "" && !services.ValidateSession(claims.SessionID, claims.Fingerprint) {
			return nil, &SecurityError{Code: CodeTokenExpired, Message: "session is no longer valid"}
		}

		if mutating(req.Method) {
			if !services.CSRF.Validate(claims.UserID, req.Header.Get("X-CSRF-Token")) {
				return nil, &SecurityError{Code: CodeHTTP, Status: http.StatusForbidden, Message: "missing or invalid CSRF token"}
			}
		}

		return next(req)
	}
}

// SanitizeInterceptor deep-sanitizes JSON request bodies before send
// and JSON response bodies before returning them, so markup injected
// into either direction is neutralized at the boundary.
func SanitizeInterceptor() Interceptor {
	return func(req *http.Request, next Next) (*http.Response, error) {
		if req.Body != nil && isJSON(req.Header.Get("Content-Type")) {
			if err := sanitizeRequestBody(req); err != nil {
				return nil, normalizeError(err)
			}
		}

		resp, err := next(req)
		if err != nil {
			return nil, err
		}

		if isJSON(resp.Header.Get("Content-Type")) {
			if err := sanitizeResponseBody(resp); err != nil {
				resp.Body.Close()
				return nil, normalizeError(err)
			}
		}
		return resp, nil
	}
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

func sanitizeRequestBody(req *http.Request) error {
	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return err
	}

	cleaned, err := sanitizeJSON(raw)
	if err != nil {
		// Not JSON after all, send as-is
		req.Body = io.NopCloser(bytes.NewReader(raw))
		return nil
	}

	req.Body = io.NopCloser(bytes.NewReader(cleaned))
	req.ContentLength = int64(len(cleaned))
	return nil
}

func sanitizeResponseBody(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	cleaned, err := sanitizeJSON(raw)
	if err != nil {
		cleaned = raw
	}

	resp.Body = io.NopCloser(bytes.NewReader(cleaned))
	resp.ContentLength = int64(len(cleaned))
	return nil
}

func sanitizeJSON(raw []byte) ([]byte, error) {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return json.Marshal(sanitize.Value(value))
}
