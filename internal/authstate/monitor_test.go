package authstate

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securedbank/sentinel/internal/security"
)

func testMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CheckInterval: 20 * time.Millisecond,
		RefreshAfter:  time.Hour,
		IdleTimeout:   80 * time.Millisecond,
		ActivityDelay: 5 * time.Millisecond,
	}
}

func TestMonitorDetectsDestroyedSession(t *testing.T) {
	store := security.NewMemorySessionStore(security.SessionConfig{})
	session, err := store.Create("user-1", "fp-1", nil)
	require.NoError(t, err)

	m := NewMachine()
	dispatchLogin(m, 100)

	cfg := testMonitorConfig()
	cfg.IdleTimeout = time.Hour
	monitor := NewMonitor(m, store, nil, cfg)
	monitor.Start(session.ID, "fp-1")
	defer monitor.Stop()

	store.Destroy(session.ID)

	assert.Eventually(t, func() bool {
		return !m.State().IsAuthenticated
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "session is no longer valid", m.State().Error)
}

func TestMonitorIdleTimeoutExpiresSession(t *testing.T) {
	store := security.NewMemorySessionStore(security.SessionConfig{})
	session, err := store.Create("user-1", "fp-1", nil)
	require.NoError(t, err)

	m := NewMachine()
	dispatchLogin(m, 100)

	monitor := NewMonitor(m, store, nil, testMonitorConfig())
	monitor.Start(session.ID, "fp-1")
	defer monitor.Stop()

	assert.Eventually(t, func() bool {
		return m.State().Error == "signed out after inactivity"
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, m.State().IsAuthenticated)
}

func TestMonitorActivityPostponesIdleTimeout(t *testing.T) {
	store := security.NewMemorySessionStore(security.SessionConfig{})
	session, err := store.Create("user-1", "fp-1", nil)
	require.NoError(t, err)

	m := NewMachine()
	dispatchLogin(m, 100)

	monitor := NewMonitor(m, store, nil, testMonitorConfig())
	monitor.Start(session.ID, "fp-1")
	defer monitor.Stop()

	// Keep signalling activity for longer than the idle timeout.
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		monitor.Activity()
		time.Sleep(20 * time.Millisecond)
	}

	assert.True(t, m.State().IsAuthenticated)
}

func TestMonitorPauseSuspendsIdleTracking(t *testing.T) {
	store := security.NewMemorySessionStore(security.SessionConfig{})
	session, err := store.Create("user-1", "fp-1", nil)
	require.NoError(t, err)

	m := NewMachine()
	dispatchLogin(m, 100)

	monitor := NewMonitor(m, store, nil, testMonitorConfig())
	monitor.Start(session.ID, "fp-1")
	defer monitor.Stop()

	monitor.Pause()
	time.Sleep(200 * time.Millisecond)
	assert.True(t, m.State().IsAuthenticated)

	monitor.Resume()
	assert.Eventually(t, func() bool {
		return !m.State().IsAuthenticated
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitorRequestsRefreshForAgingSession(t *testing.T) {
	store := security.NewMemorySessionStore(security.SessionConfig{})
	session, err := store.Create("user-1", "fp-1", nil)
	require.NoError(t, err)

	m := NewMachine()
	dispatchLogin(m, 100)

	var refreshes atomic.Int32
	cfg := testMonitorConfig()
	cfg.RefreshAfter = 1 * time.Millisecond
	cfg.IdleTimeout = time.Hour
	monitor := NewMonitor(m, store, func() { refreshes.Add(1) }, cfg)
	monitor.Start(session.ID, "fp-1")
	defer monitor.Stop()

	assert.Eventually(t, func() bool {
		return refreshes.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The refresh request fires once, not on every subsequent tick.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), refreshes.Load())
}
