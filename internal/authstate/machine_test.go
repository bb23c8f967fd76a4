package authstate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securedbank/sentinel/internal/models"
)

func dispatchLogin(m *Machine, score int) {
	m.Dispatch(AuthSuccess{
		User:        &models.User{ID: "user-1"},
		Token:       "token-abc",
		ExpiresAt:   time.Now().Add(30 * time.Minute),
		Fingerprint: "fp-1",
		Score:       score,
		LoginAt:     time.Now(),
	})
}

func TestMachineDispatchAndSubscribe(t *testing.T) {
	m := NewMachine()

	var mu sync.Mutex
	var seen []State
	unsubscribe := m.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	dispatchLogin(m, 100)
	m.Dispatch(SecurityAlert{Severity: models.SeverityLow})

	mu.Lock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsAuthenticated)
	assert.Equal(t, 95, seen[1].SecurityScore)
	mu.Unlock()

	unsubscribe()
	m.Dispatch(SecurityAlert{Severity: models.SeverityLow})

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}

func TestMachineForcedLogoutBelowThreshold(t *testing.T) {
	m := NewMachine()

	loggedOut := make(chan State, 1)
	m.OnForcedLogout(func(s State) {
		loggedOut <- s
	})

	dispatchLogin(m, 100)

	// Three critical alerts: 100 -> 70 -> 40 -> 10, crossing below 40.
	m.Dispatch(SecurityAlert{Severity: models.SeverityCritical})
	m.Dispatch(SecurityAlert{Severity: models.SeverityCritical})
	m.Dispatch(SecurityAlert{Severity: models.SeverityCritical})

	select {
	case crossed := <-loggedOut:
		assert.Equal(t, 10, crossed.SecurityScore)
		assert.Equal(t, "user-1", crossed.User.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("forced logout effect did not fire")
	}

	assert.Eventually(t, func() bool {
		return !m.State().IsAuthenticated
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, MaxSecurityScore, m.State().SecurityScore)
}

func TestMachineForcedLogoutFiresOncePerSession(t *testing.T) {
	m := NewMachine()

	loggedOut := make(chan State, 4)
	m.OnForcedLogout(func(s State) {
		loggedOut <- s
	})

	dispatchLogin(m, 30)
	<-loggedOut

	// Further alerts while logged out must not re-fire the effect.
	m.Dispatch(SecurityAlert{Severity: models.SeverityCritical})

	select {
	case <-loggedOut:
		t.Fatal("forced logout fired twice for one session")
	case <-time.After(100 * time.Millisecond):
	}

	// A new session arms the effect again.
	dispatchLogin(m, 30)
	select {
	case <-loggedOut:
	case <-time.After(2 * time.Second):
		t.Fatal("forced logout did not re-arm for the new session")
	}
}

func TestMachineScoreAtThresholdStaysAuthenticated(t *testing.T) {
	m := NewMachine()

	fired := make(chan struct{}, 1)
	m.OnForcedLogout(func(State) { fired <- struct{}{} })

	dispatchLogin(m, 40)

	select {
	case <-fired:
		t.Fatal("score equal to the threshold must not force logout")
	case <-time.After(100 * time.Millisecond):
	}
	assert.True(t, m.State().IsAuthenticated)
}

func TestMachineConcurrentDispatches(t *testing.T) {
	// Unauthenticated, so the score dropping through the critical
	// threshold cannot schedule a forced logout mid-test.
	m := NewMachine()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Dispatch(LoginAttemptFailed{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, m.State().FailedAttempts)
	assert.Equal(t, 0, m.State().SecurityScore)
}
