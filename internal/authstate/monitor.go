package authstate

import (
	"sync"
	"time"

	"github.com/securedbank/sentinel/internal/security"
	"github.com/securedbank/sentinel/pkg/debounce"
)

const (
	DefaultCheckInterval = 60 * time.Second
	DefaultRefreshAfter  = 25 * time.Minute
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultActivityDelay = 250 * time.Millisecond
)

// SessionValidator is the slice of the session store the monitor needs.
type SessionValidator interface {
	Get(sessionID, fingerprint string) (*security.Session, bool)
}

// MonitorConfig tunes the background session checks.
type MonitorConfig struct {
	CheckInterval time.Duration // how often the session is revalidated
	RefreshAfter  time.Duration // session age that triggers a token refresh
	IdleTimeout   time.Duration // inactivity gap that ends the session
	ActivityDelay time.Duration // debounce interval for activity signals
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.RefreshAfter <= 0 {
		c.RefreshAfter = DefaultRefreshAfter
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ActivityDelay <= 0 {
		c.ActivityDelay = DefaultActivityDelay
	}
	return c
}

// Monitor revalidates the active session on an interval, requests a
// token refresh once the session nears the end of its lifetime, and
// ends the session after a period of inactivity. Activity signals are
// debounced so bursts cost one idle-timer reset.
type Monitor struct {
	machine  *Machine
	sessions SessionValidator
	refresh  func() // requests a token refresh; nil disables refresh
	config   MonitorConfig

	activity *debounce.Debouncer

	mu          sync.Mutex
	sessionID   string
	fingerprint string
	idleTimer   *time.Timer
	stop        chan struct{}
	paused      bool
	refreshed   bool
}

// NewMonitor wires a monitor to a machine and session store. The
// refresh callback may be nil when token refresh is handled elsewhere.
func NewMonitor(machine *Machine, sessions SessionValidator, refresh func(), config MonitorConfig) *Monitor {
	m := &Monitor{
		machine:  machine,
		sessions: sessions,
		refresh:  refresh,
		config:   config.withDefaults(),
	}
	m.activity = debounce.NewDebouncer(m.config.ActivityDelay, m.resetIdleTimer)
	return m
}

// Start begins monitoring the given session. A previous run, if any, is
// stopped first.
func (m *Monitor) Start(sessionID, fingerprint string) {
	m.Stop()

	m.mu.Lock()
	m.sessionID = sessionID
	m.fingerprint = fingerprint
	m.paused = false
	m.refreshed = false
	m.stop = make(chan struct{})
	m.idleTimer = time.AfterFunc(m.config.IdleTimeout, m.idleExpired)
	stop := m.stop
	m.mu.Unlock()

	go m.run(stop)
}

// Stop halts the ticker and idle timer. Safe to call when not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Activity records user activity, debounced, postponing the idle
// timeout.
func (m *Monitor) Activity() {
	m.mu.Lock()
	running := m.stop != nil && !m.paused
	m.mu.Unlock()

	if running {
		m.activity.Trigger()
	}
}

// Pause suspends idle tracking, for long-running foreground operations
// that produce no activity signals.
func (m *Monitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = true
	if m.idleTimer != nil {
		m.idleTimer.Stop()
	}
	m.activity.Cancel()
}

// Resume restarts idle tracking with a fresh timeout.
func (m *Monitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stop == nil || !m.paused {
		return
	}
	m.paused = false
	m.idleTimer = time.AfterFunc(m.config.IdleTimeout, m.idleExpired)
}

func (m *Monitor) run(stop chan struct{}) {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *Monitor) check() {
	m.mu.Lock()
	sessionID, fingerprint := m.sessionID, m.fingerprint
	m.mu.Unlock()

	if sessionID == "" {
		return
	}

	session, ok := m.sessions.Get(sessionID, fingerprint)
	if !ok {
		m.Stop()
		m.machine.Dispatch(SessionExpired{Message: "session is no longer valid"})
		return
	}

	if m.refresh != nil && time.Since(session.CreatedAt) >= m.config.RefreshAfter {
		m.mu.Lock()
		fire := !m.refreshed
		m.refreshed = true
		m.mu.Unlock()
		if fire {
			m.refresh()
		}
	}
}

func (m *Monitor) resetIdleTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stop == nil || m.paused {
		return
	}
	if m.idleTimer != nil {
		m.idleTimer.Stop()
	}
	m.idleTimer = time.AfterFunc(m.config.IdleTimeout, m.idleExpired)
}

func (m *Monitor) idleExpired() {
	m.mu.Lock()
	running := m.stop != nil && !m.paused
	m.stopLocked()
	m.mu.Unlock()

	if running {
		m.machine.Dispatch(SessionExpired{Message: "signed out after inactivity"})
	}
}

// stopLocked halts timers and the ticker goroutine. Caller must hold
// m.mu.
func (m *Monitor) stopLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
	m.activity.Cancel()
	m.sessionID = ""
	m.fingerprint = ""
}
