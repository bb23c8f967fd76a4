package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingDelay equalizes login response time so a caller cannot tell a
// rejected password from an unknown email by latency alone.
type TimingDelay struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// NewTimingDelay creates a timing delay helper with the given bounds.
func NewTimingDelay(minDelay, maxDelay time.Duration) *TimingDelay {
	if minDelay <= 0 {
		minDelay = 100 * time.Millisecond
	}
	if maxDelay <= minDelay {
		maxDelay = minDelay + 100*time.Millisecond
	}
	return &TimingDelay{minDelay: minDelay, maxDelay: maxDelay}
}

// Wait sleeps for a random duration within the configured bounds.
func (td *TimingDelay) Wait() {
	time.Sleep(td.randomDelay())
}

// WaitFrom sleeps for whatever remains of a random target duration
// measured from start. If the work already took longer than the target,
// it returns immediately.
func (td *TimingDelay) WaitFrom(start time.Time) {
	target := td.randomDelay()
	elapsed := time.Since(start)
	if elapsed < target {
		time.Sleep(target - elapsed)
	}
}

func (td *TimingDelay) randomDelay() time.Duration {
	span := int64(td.maxDelay - td.minDelay)
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return td.minDelay
	}
	return td.minDelay + time.Duration(n.Int64())
}
