package security_test

import (
	"errors"
	"testing"
	"time"

	"github.com/securedbank/sentinel/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCacheSetGet(t *testing.T) {
	cache := security.NewTokenCache()

	cache.Set("csrf:user-1", "abc123", "csrf", time.Minute)

	entry, ok := cache.Get("csrf:user-1")
	require.True(t, ok)
	assert.Equal(t, "abc123", entry.Value)
	assert.Equal(t, "csrf", entry.Type)
}

func TestTokenCacheExpiredEntryDeletedOnRead(t *testing.T) {
	cache := security.NewTokenCache()
	now := time.Now()
	cache.SetClock(func() time.Time { return now })

	cache.Set("k", "v", "session", time.Minute)

	now = now.Add(2 * time.Minute)

	_, ok := cache.Get("k")
	assert.False(t, ok)
}

func TestTokenCacheGetOrCreate(t *testing.T) {
	cache := security.NewTokenCache()

	calls := 0
	create := func() (string, error) {
		calls++
		return "generated", nil
	}

	value, hit, err := cache.GetOrCreate("k", "csrf", time.Minute, create)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "generated", value)

	// Second call inside the TTL window must not regenerate
	value, hit, err = cache.GetOrCreate("k", "csrf", time.Minute, create)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "generated", value)
	assert.Equal(t, 1, calls)
}

func TestTokenCacheGetOrCreatePropagatesError(t *testing.T) {
	cache := security.NewTokenCache()

	wantErr := errors.New("entropy exhausted")
	_, _, err := cache.GetOrCreate("k", "csrf", time.Minute, func() (string, error) {
		return "", wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, ok := cache.Get("k")
	assert.False(t, ok, "failed creation must not be cached")
}

func TestTokenCacheClearExpired(t *testing.T) {
	cache := security.NewTokenCache()
	now := time.Now()
	cache.SetClock(func() time.Time { return now })

	cache.Set("stale", "v", "csrf", time.Minute)
	cache.Set("fresh", "v", "csrf", time.Hour)

	now = now.Add(5 * time.Minute)

	assert.Equal(t, 1, cache.ClearExpired())

	_, ok := cache.Get("fresh")
	assert.True(t, ok)
}
