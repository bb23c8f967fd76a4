package security_test

import (
	"testing"
	"time"

	"github.com/securedbank/sentinel/internal/security"
	"github.com/stretchr/testify/assert"
)

func TestThrottleAllowsUntilLimit(t *testing.T) {
	throttle := security.NewThrottle(5, 15*time.Minute)

	for i := 1; i <= 4; i++ {
		d := throttle.RecordAttempt("analyst@securedbank.example", false)
		assert.True(t, d.Allowed, "attempt %d should be allowed", i)
		assert.Equal(t, 5-i, d.Remaining)
	}
}

func TestThrottleLocksOnFifthFailure(t *testing.T) {
	throttle := security.NewThrottle(5, 15*time.Minute)

	for i := 0; i < 4; i++ {
		throttle.RecordAttempt("user", false)
	}

	d := throttle.RecordAttempt("user", false)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.True(t, throttle.IsLocked("user"))

	// A sixth call inside the window is also blocked, even on success
	d = throttle.RecordAttempt("user", true)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestThrottleSuccessResetsCounter(t *testing.T) {
	throttle := security.NewThrottle(5, 15*time.Minute)

	throttle.RecordAttempt("user", false)
	throttle.RecordAttempt("user", false)

	d := throttle.RecordAttempt("user", true)
	assert.True(t, d.Allowed)
	assert.Equal(t, 5, d.Remaining)

	d = throttle.RecordAttempt("user", false)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining, "counter should have restarted after success")
}

func TestThrottleLockoutExpiresLazily(t *testing.T) {
	throttle := security.NewThrottle(5, 15*time.Minute)
	now := time.Now()
	throttle.SetClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		throttle.RecordAttempt("user", false)
	}
	assert.False(t, throttle.RecordAttempt("user", false).Allowed)

	// Advance past the window: record lazily resets and counting restarts
	now = now.Add(15*time.Minute + time.Second)

	d := throttle.RecordAttempt("user", false)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)
	assert.False(t, throttle.IsLocked("user"))
}

func TestThrottleIdentifiersAreIndependent(t *testing.T) {
	throttle := security.NewThrottle(5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		throttle.RecordAttempt("locked", false)
	}

	assert.True(t, throttle.IsLocked("locked"))
	assert.True(t, throttle.RecordAttempt("other", false).Allowed)
}

func TestThrottleSweepRemovesElapsedLockouts(t *testing.T) {
	throttle := security.NewThrottle(5, 15*time.Minute)
	now := time.Now()
	throttle.SetClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		throttle.RecordAttempt("stale", false)
	}
	throttle.RecordAttempt("fresh", false)

	assert.Equal(t, 0, throttle.Sweep(), "active lockout must survive sweep")

	now = now.Add(16 * time.Minute)
	assert.Equal(t, 1, throttle.Sweep())
	assert.False(t, throttle.IsLocked("stale"))
}
