package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
)

type recordingSink struct {
	events []*models.SecurityEvent
}

func (s *recordingSink) Publish(event *models.SecurityEvent) {
	s.events = append(s.events, event)
}

func csrfTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withClaims(req *http.Request, userID string) *http.Request {
	claims := &models.TokenClaims{UserID: userID, Type: "access"}
	return req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, claims))
}

func TestCSRFProtection_SkipsSafeMethods(t *testing.T) {
	manager := auth.NewCSRFTokenManager(time.Hour)
	handler := CSRFProtection(manager, nil, slog.Default())(csrfTestHandler())

	req := httptest.NewRequest("GET", "/api/security/status", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET should bypass CSRF check, got status %d", w.Code)
	}
}

func TestCSRFProtection_ValidToken(t *testing.T) {
	manager := auth.NewCSRFTokenManager(time.Hour)
	token, err := manager.Generate("user123")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	handler := CSRFProtection(manager, nil, slog.Default())(csrfTestHandler())

	req := withClaims(httptest.NewRequest("POST", "/api/auth/logout", nil), "user123")
	req.Header.Set("X-CSRF-Token", token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("valid token should pass, got status %d", w.Code)
	}
}

func TestCSRFProtection_MissingToken(t *testing.T) {
	manager := auth.NewCSRFTokenManager(time.Hour)
	sink := &recordingSink{}
	handler := CSRFProtection(manager, sink, slog.Default())(csrfTestHandler())

	req := withClaims(httptest.NewRequest("POST", "/api/auth/logout", nil), "user123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("missing token should be rejected, got status %d", w.Code)
	}
	if len(sink.events) != 1 || sink.events[0].EventType != models.SecurityEventCSRFRejected {
		t.Errorf("rejection should publish a csrf_rejected event, got %+v", sink.events)
	}
}

func TestCSRFProtection_WrongUserToken(t *testing.T) {
	manager := auth.NewCSRFTokenManager(time.Hour)
	token, err := manager.Generate("other-user")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	sink := &recordingSink{}
	handler := CSRFProtection(manager, sink, slog.Default())(csrfTestHandler())

	req := withClaims(httptest.NewRequest("POST", "/api/auth/logout", nil), "user123")
	req.Header.Set("X-CSRF-Token", token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("another user's token should be rejected, got status %d", w.Code)
	}
	if len(sink.events) != 1 {
		t.Errorf("rejection should publish an event, got %d", len(sink.events))
	}
}

func TestCSRFProtection_DoubleSubmitCookieForPublicEndpoints(t *testing.T) {
	manager := auth.NewCSRFTokenManager(time.Hour)
	handler := CSRFProtection(manager, nil, slog.Default())(csrfTestHandler())

	req := httptest.NewRequest("POST", "/api/auth/forgot-password", nil)
	req.Header.Set("X-CSRF-Token", "public-token")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "public-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("matching header and cookie should pass, got status %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/auth/forgot-password", nil)
	req.Header.Set("X-CSRF-Token", "public-token")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "different-token"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("mismatched header and cookie should be rejected, got status %d", w.Code)
	}
}
