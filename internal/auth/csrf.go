package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultCSRFTokenTTL is how long an issued CSRF token stays valid.
const DefaultCSRFTokenTTL = 24 * time.Hour

type csrfTokenEntry struct {
	token  string
	expiry time.Time
}

// CSRFTokenManager issues and validates per-user CSRF tokens. Each user
// has at most one live token; regeneration replaces and invalidates the
// previous one.
type CSRFTokenManager struct {
	tokens   map[string]*csrfTokenEntry // userID -> entry
	mu       sync.RWMutex
	tokenTTL time.Duration
	now      func() time.Time
}

// NewCSRFTokenManager creates a new CSRF token manager
func NewCSRFTokenManager(tokenTTL time.Duration) *CSRFTokenManager {
	if tokenTTL <= 0 {
		tokenTTL = DefaultCSRFTokenTTL
	}
	return &CSRFTokenManager{
		tokens:   make(map[string]*csrfTokenEntry),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Generate creates a new CSRF token for a user, overwriting any prior one.
func (m *CSRFTokenManager) Generate(userID string) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(randomBytes)

	m.mu.Lock()
	m.tokens[userID] = &csrfTokenEntry{
		token:  token,
		expiry: m.now().Add(m.tokenTTL),
	}
	m.mu.Unlock()

	return token, nil
}

// Ensure returns the user's live token, generating one only when none
// exists or the existing one has expired.
func (m *CSRFTokenManager) Ensure(userID string) (string, error) {
	m.mu.RLock()
	entry, exists := m.tokens[userID]
	m.mu.RUnlock()

	if exists && m.now().Before(entry.expiry) {
		return entry.token, nil
	}
	return m.Generate(userID)
}

// Validate checks that token is the live token for userID. Expired
// entries are deleted on the spot.
func (m *CSRFTokenManager) Validate(userID, token string) bool {
	m.mu.RLock()
	entry, exists := m.tokens[userID]
	m.mu.RUnlock()

	if !exists || token == "" {
		return false
	}

	if m.now().After(entry.expiry) {
		m.mu.Lock()
		// Re-check under the write lock: the entry may have been replaced
		if current, ok := m.tokens[userID]; ok && current == entry {
			delete(m.tokens, userID)
		}
		m.mu.Unlock()
		return false
	}

	return subtle.ConstantTimeCompare([]byte(entry.token), []byte(token)) == 1
}

// Revoke invalidates a user's CSRF token (e.g. on logout).
func (m *CSRFTokenManager) Revoke(userID string) {
	m.mu.Lock()
	delete(m.tokens, userID)
	m.mu.Unlock()
}

// ClearExpired removes expired tokens. Run from the periodic cleanup
// manager.
func (m *CSRFTokenManager) ClearExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for userID, entry := range m.tokens {
		if now.After(entry.expiry) {
			delete(m.tokens, userID)
			removed++
		}
	}
	return removed
}

// SetClock overrides the time source. Test hook.
func (m *CSRFTokenManager) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}
