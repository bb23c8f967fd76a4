package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/handlers"
	"github.com/securedbank/sentinel/internal/middleware"
	"github.com/securedbank/sentinel/internal/notify"
	"github.com/securedbank/sentinel/internal/security"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	securityHandler *handlers.SecurityHandler,
	mfaHandler *handlers.MFAHandler,
	hub *notify.Hub,
	tokenManager *auth.TokenManager,
	sec *security.Services,
	logger *slog.Logger,
) {
	// Rate limiting config for auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/register", authHandler.Register)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/refresh", authHandler.RefreshToken)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/forgot-password", authHandler.ForgotPassword)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/reset-password", authHandler.ResetPassword)

	// Alert stream authenticates inside the handshake; the token arrives
	// as a query parameter because browsers cannot set headers on WebSocket
	// connections.
	router.Get("/ws/alerts", hub.HandleWS)

	// Protected routes - authentication and a live session required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddlewareWithSessions(tokenManager, sec))

		r.Get("/api/auth/csrf", authHandler.CSRFToken)
		r.Get("/api/security/status", securityHandler.Status)
		r.Get("/api/security/device-logins", securityHandler.DeviceLogins)
		r.Get("/api/security/location-risk", securityHandler.LocationRisk)
		r.Get("/api/security/events", securityHandler.Events)

		// State-changing endpoints additionally check the CSRF token
		r.Group(func(r chi.Router) {
			r.Use(middleware.CSRFProtection(sec.CSRF, hub, logger))

			r.Post("/api/auth/logout", authHandler.Logout)
			r.Post("/api/auth/logout-all", authHandler.LogoutAll)
			r.Post("/api/mfa/setup", mfaHandler.Setup)
			r.Post("/api/mfa/confirm", mfaHandler.Confirm)
			r.Post("/api/mfa/disable", mfaHandler.Disable)
		})
	})
}
