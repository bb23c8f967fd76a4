package authstate

import "sync"

// Machine serializes dispatches against the reducer, fans current state
// out to subscribers, and schedules the forced-logout effect when the
// security score crosses the critical threshold.
type Machine struct {
	mu          sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextSubID   int
	logoutFired bool

	// onForcedLogout runs once per authenticated session when the score
	// drops below the critical threshold, after the Logout dispatch.
	onForcedLogout func(State)
}

// NewMachine creates a machine holding the initial state.
func NewMachine() *Machine {
	return &Machine{
		state:       Initial(),
		subscribers: make(map[int]func(State)),
	}
}

// OnForcedLogout registers the side effect run after a score-triggered
// logout, typically server-side session destruction and an audit event.
func (m *Machine) OnForcedLogout(fn func(State)) {
	m.mu.Lock()
	m.onForcedLogout = fn
	m.mu.Unlock()
}

// State returns the current state snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a listener called with every post-dispatch state.
// The returned function removes the listener.
func (m *Machine) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Dispatch applies the action and returns the resulting state. When the
// result is an authenticated state below the critical score threshold,
// a forced Logout is dispatched asynchronously, exactly once per
// session.
func (m *Machine) Dispatch(action Action) State {
	m.mu.Lock()

	next := Reduce(m.state, action)
	m.state = next

	if next.IsAuthenticated {
		if _, ok := action.(AuthSuccess); ok {
			m.logoutFired = false
		}
	}

	var forced bool
	if BelowCriticalThreshold(next) && !m.logoutFired {
		m.logoutFired = true
		forced = true
	}

	listeners := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		listeners = append(listeners, fn)
	}
	effect := m.onForcedLogout
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}

	if forced {
		crossed := next
		go func() {
			m.Dispatch(Logout{Message: "security score below safe threshold"})
			if effect != nil {
				effect(crossed)
			}
		}()
	}

	return next
}
