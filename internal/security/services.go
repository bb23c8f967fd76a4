package security

import (
	"log/slog"
	"time"

	"github.com/securedbank/sentinel/internal/auth"
)

// Services bundles the security primitives behind one explicit
// instance: login throttling, per-user CSRF tokens, fingerprint-bound
// sessions, and the token cache. Everything that needs a primitive
// receives it from here rather than reaching for package state.
type Services struct {
	Throttle *Throttle
	CSRF     *auth.CSRFTokenManager
	Sessions SessionStore
	Tokens   *TokenCache
}

// ServicesConfig tunes the primitives. Zero values take the defaults.
type ServicesConfig struct {
	MaxAttempts   int
	LockoutWindow time.Duration
	CSRFTokenTTL  time.Duration
	Session       SessionConfig
}

// NewServices builds the aggregate with an in-memory session store.
// Zero config values fall back to each primitive's own defaults.
func NewServices(config ServicesConfig) *Services {
	return &Services{
		Throttle: NewThrottle(config.MaxAttempts, config.LockoutWindow),
		CSRF:     auth.NewCSRFTokenManager(config.CSRFTokenTTL),
		Sessions: NewMemorySessionStore(config.Session),
		Tokens:   NewTokenCache(),
	}
}

// NewServicesWithSessions builds the aggregate around an externally
// provided session store, for Redis-backed deployments.
func NewServicesWithSessions(config ServicesConfig, sessions SessionStore) *Services {
	s := NewServices(config)
	s.Sessions = sessions
	return s
}

// ValidateSession reports whether the session exists, has not expired,
// and is bound to the presenting fingerprint. Satisfies the auth
// middleware's session check.
func (s *Services) ValidateSession(sessionID, fingerprint string) bool {
	_, ok := s.Sessions.Get(sessionID, fingerprint)
	return ok
}

// Cleanup reaps expired state from every primitive in one pass and logs
// what was removed. Run periodically by the background cleanup manager.
func (s *Services) Cleanup(logger *slog.Logger) {
	csrfCleared := s.CSRF.ClearExpired()
	sessionsDropped := s.Sessions.Maintenance()
	throttleSwept := s.Throttle.Sweep()
	tokensCleared := s.Tokens.ClearExpired()

	if logger != nil && (csrfCleared > 0 || sessionsDropped > 0 || throttleSwept > 0 || tokensCleared > 0) {
		logger.Info("security cleanup completed",
			slog.Int("csrf_tokens_cleared", csrfCleared),
			slog.Int("sessions_dropped", sessionsDropped),
			slog.Int("throttle_entries_swept", throttleSwept),
			slog.Int("cached_tokens_cleared", tokensCleared),
		)
	}
}
