package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultSessionMaxAge = 30 * time.Minute
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultRenewWindow   = 5 * time.Minute
)

// Session is the server-side state of an authenticated session, bound to
// the device fingerprint supplied at creation.
type Session struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Fingerprint  string            `json:"fingerprint"`
	Data         map[string]string `json:"data,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// SessionStore abstracts session CRUD so sessions can live in memory
// (default) or in Redis for multi-instance deployments.
type SessionStore interface {
	// Create registers the fingerprint for the user and stores a new
	// session expiring after the configured max age.
	Create(userID, fingerprint string, data map[string]string) (*Session, error)
	// Get returns the session only if it is not expired, not idle past
	// the idle timeout, and the fingerprint is registered for its user.
	// Any violation destroys the session and returns false; a
	// fingerprint mismatch is a hijack signal for the caller.
	Get(sessionID, fingerprint string) (*Session, bool)
	// Destroy removes a session by ID.
	Destroy(sessionID string)
	// DestroyAllForUser removes every session and fingerprint for a user.
	DestroyAllForUser(userID string)
	// ActiveSessionCount returns the number of live sessions for a user.
	ActiveSessionCount(userID string) int
	// Maintenance removes expired sessions and orphaned fingerprint sets,
	// returning the number of sessions dropped.
	Maintenance() int
}

// SessionConfig tunes session lifetime behavior.
type SessionConfig struct {
	MaxAge      time.Duration // absolute lifetime per renewal
	IdleTimeout time.Duration // maximum inactivity gap
	RenewWindow time.Duration // remaining-time threshold for sliding renewal
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultSessionMaxAge
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.RenewWindow <= 0 {
		c.RenewWindow = DefaultRenewWindow
	}
	return c
}

// MemorySessionStore is the in-memory SessionStore implementation.
type MemorySessionStore struct {
	config SessionConfig

	mu           sync.Mutex
	sessions     map[string]*Session
	fingerprints map[string]map[string]bool // userID -> fingerprint set
	now          func() time.Time

	// onHijack, when set, is invoked with the session whose fingerprint
	// check failed, outside store state mutation concerns.
	onHijack func(s Session)
}

func NewMemorySessionStore(config SessionConfig) *MemorySessionStore {
	return &MemorySessionStore{
		config:       config.withDefaults(),
		sessions:     make(map[string]*Session),
		fingerprints: make(map[string]map[string]bool),
		now:          time.Now,
	}
}

// OnHijack registers a callback fired when a fingerprint mismatch
// destroys a session.
func (s *MemorySessionStore) OnHijack(fn func(Session)) {
	s.mu.Lock()
	s.onHijack = fn
	s.mu.Unlock()
}

func (s *MemorySessionStore) Create(userID, fingerprint string, data map[string]string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session := &Session{
		ID:           id,
		UserID:       userID,
		Fingerprint:  fingerprint,
		Data:         data,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.config.MaxAge),
	}

	if s.fingerprints[userID] == nil {
		s.fingerprints[userID] = make(map[string]bool)
	}
	s.fingerprints[userID][fingerprint] = true
	s.sessions[id] = session

	copied := *session
	return &copied, nil
}

func (s *MemorySessionStore) Get(sessionID, fingerprint string) (*Session, bool) {
	s.mu.Lock()

	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}

	now := s.now()

	if now.After(session.ExpiresAt) {
		s.destroyLocked(sessionID)
		s.mu.Unlock()
		return nil, false
	}

	if now.Sub(session.LastActivity) >= s.config.IdleTimeout {
		s.destroyLocked(sessionID)
		s.mu.Unlock()
		return nil, false
	}

	if !s.fingerprints[session.UserID][fingerprint] {
		// Fingerprint not registered for this user: possible hijack
		hijacked := *session
		s.destroyLocked(sessionID)
		hijackFn := s.onHijack
		s.mu.Unlock()
		if hijackFn != nil {
			hijackFn(hijacked)
		}
		return nil, false
	}

	session.LastActivity = now
	if session.ExpiresAt.Sub(now) < s.config.RenewWindow {
		// Sliding renewal
		session.ExpiresAt = now.Add(s.config.MaxAge)
	}

	copied := *session
	s.mu.Unlock()
	return &copied, true
}

func (s *MemorySessionStore) Destroy(sessionID string) {
	s.mu.Lock()
	s.destroyLocked(sessionID)
	s.mu.Unlock()
}

func (s *MemorySessionStore) DestroyAllForUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
		}
	}
	delete(s.fingerprints, userID)
}

func (s *MemorySessionStore) Maintenance() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) || now.Sub(session.LastActivity) >= s.config.IdleTimeout {
			delete(s.sessions, id)
			removed++
		}
	}

	// Drop fingerprint sets no active session references
	active := make(map[string]bool, len(s.sessions))
	for _, session := range s.sessions {
		active[session.UserID] = true
	}
	for userID := range s.fingerprints {
		if !active[userID] {
			delete(s.fingerprints, userID)
		}
	}

	return removed
}

// ActiveSessionCount returns the number of live sessions for a user.
func (s *MemorySessionStore) ActiveSessionCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, session := range s.sessions {
		if session.UserID == userID && now.Before(session.ExpiresAt) {
			count++
		}
	}
	return count
}

// destroyLocked removes the session entry. Caller must hold s.mu.
// Fingerprint sets are left for Maintenance to reap once orphaned.
func (s *MemorySessionStore) destroyLocked(sessionID string) {
	delete(s.sessions, sessionID)
}

// SetClock overrides the time source. Test hook.
func (s *MemorySessionStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func generateSessionID() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}
