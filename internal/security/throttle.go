package security

import (
	"sync"
	"time"
)

const (
	DefaultMaxAttempts   = 5
	DefaultLockoutWindow = 15 * time.Minute
)

// Decision is the outcome of recording a login attempt.
type Decision struct {
	Allowed   bool
	Remaining int
}

type attemptRecord struct {
	count        int
	lockoutUntil time.Time
}

// Throttle tracks failed login attempts per identifier and locks the
// identifier out once the failure limit is reached. State is in-memory
// and process-lifetime only; the durable record lives in the
// login_attempts table.
type Throttle struct {
	maxAttempts   int
	lockoutWindow time.Duration

	mu      sync.Mutex
	records map[string]*attemptRecord
	now     func() time.Time
}

// NewThrottle creates a Throttle with the given limits. Non-positive
// arguments fall back to the defaults (5 attempts, 15 minutes).
func NewThrottle(maxAttempts int, lockoutWindow time.Duration) *Throttle {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockoutWindow <= 0 {
		lockoutWindow = DefaultLockoutWindow
	}
	return &Throttle{
		maxAttempts:   maxAttempts,
		lockoutWindow: lockoutWindow,
		records:       make(map[string]*attemptRecord),
		now:           time.Now,
	}
}

// RecordAttempt records the outcome of a login try for identifier.
// While a lockout window is active every call returns Allowed=false with
// Remaining=0, regardless of the success flag; once the window elapses the
// record is lazily reset. A success outside a lockout resets the counter.
func (t *Throttle) RecordAttempt(identifier string, success bool) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	rec, ok := t.records[identifier]
	if ok && !rec.lockoutUntil.IsZero() {
		if now.Before(rec.lockoutUntil) {
			return Decision{Allowed: false, Remaining: 0}
		}
		// Lockout elapsed, lazily reset before counting this attempt
		rec.count = 0
		rec.lockoutUntil = time.Time{}
	}

	if success {
		delete(t.records, identifier)
		return Decision{Allowed: true, Remaining: t.maxAttempts}
	}

	if !ok {
		rec = &attemptRecord{}
		t.records[identifier] = rec
	}
	rec.count++

	if rec.count >= t.maxAttempts {
		rec.lockoutUntil = now.Add(t.lockoutWindow)
		return Decision{Allowed: false, Remaining: 0}
	}

	return Decision{Allowed: true, Remaining: t.maxAttempts - rec.count}
}

// IsLocked reports whether the identifier is inside an active lockout
// window without mutating its record.
func (t *Throttle) IsLocked(identifier string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[identifier]
	if !ok || rec.lockoutUntil.IsZero() {
		return false
	}
	return t.now().Before(rec.lockoutUntil)
}

// Reset clears the record for identifier.
func (t *Throttle) Reset(identifier string) {
	t.mu.Lock()
	delete(t.records, identifier)
	t.mu.Unlock()
}

// Sweep garbage-collects records whose lockout window has elapsed.
// Run from the periodic cleanup manager.
func (t *Throttle) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for id, rec := range t.records {
		if !rec.lockoutUntil.IsZero() && now.After(rec.lockoutUntil) {
			delete(t.records, id)
			removed++
		}
	}
	return removed
}

// SetClock overrides the time source. Test hook.
func (t *Throttle) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}
