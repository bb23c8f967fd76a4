package middleware

import (
	"log/slog"
	"net/http"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
)

// EventSink receives security events emitted by middleware.
type EventSink interface {
	Publish(event *models.SecurityEvent)
}

// CSRFProtection validates CSRF tokens on state-changing requests.
// Authenticated requests are checked against the per-user token;
// unauthenticated requests fall back to double-submit cookie
// validation. Rejections are pushed to the alert stream when a sink is
// attached.
func CSRFProtection(csrfManager *auth.CSRFTokenManager, events EventSink, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			claims := auth.GetUserFromContext(r)

			csrfToken := r.Header.Get("X-CSRF-Token")
			if csrfToken == "" {
				if cookie, err := r.Cookie("csrf_token"); err == nil {
					csrfToken = cookie.Value
				}
			}

			if csrfToken == "" {
				logger.Warn("CSRF token missing in request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				rejectCSRF(w, r, events, claims, "CSRF token missing")
				return
			}

			if claims != nil {
				if !csrfManager.Validate(claims.UserID, csrfToken) {
					logger.Warn("CSRF token validation failed",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("user_id", claims.UserID))
					rejectCSRF(w, r, events, claims, "CSRF token invalid")
					return
				}
			} else {
				// Double-submit cookie check for public endpoints
				csrfCookie, err := r.Cookie("csrf_token")
				if err != nil || csrfCookie.Value != csrfToken {
					logger.Warn("CSRF token validation failed for public endpoint",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path))
					rejectCSRF(w, r, events, nil, "CSRF token invalid")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectCSRF(w http.ResponseWriter, r *http.Request, events EventSink, claims *models.TokenClaims, message string) {
	if events != nil {
		event := &models.SecurityEvent{
			EventType: models.SecurityEventCSRFRejected,
			Severity:  models.SeverityMedium,
			Message:   message,
		}
		if claims != nil {
			event.UserID = &claims.UserID
		}
		events.Publish(event)
	}
	http.Error(w, message, http.StatusForbidden)
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
