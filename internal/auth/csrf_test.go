package auth_test

import (
	"testing"
	"time"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFGenerateAndValidate(t *testing.T) {
	manager := auth.NewCSRFTokenManager(24 * time.Hour)

	token, err := manager.Generate("user-1")
	require.NoError(t, err)
	assert.Len(t, token, 64)

	assert.True(t, manager.Validate("user-1", token))
	assert.False(t, manager.Validate("user-1", "deadbeef"))
	assert.False(t, manager.Validate("user-2", token), "token must not validate for another user")
	assert.False(t, manager.Validate("user-1", ""))
}

func TestCSRFRegenerationInvalidatesPriorToken(t *testing.T) {
	manager := auth.NewCSRFTokenManager(24 * time.Hour)

	first, err := manager.Generate("user-1")
	require.NoError(t, err)
	second, err := manager.Generate("user-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	assert.False(t, manager.Validate("user-1", first))
	assert.True(t, manager.Validate("user-1", second))
}

func TestCSRFExpiry(t *testing.T) {
	manager := auth.NewCSRFTokenManager(24 * time.Hour)
	now := time.Now()
	manager.SetClock(func() time.Time { return now })

	token, err := manager.Generate("user-1")
	require.NoError(t, err)

	now = now.Add(24*time.Hour + time.Minute)

	assert.False(t, manager.Validate("user-1", token))
	// Expired entry was deleted on read
	assert.False(t, manager.Validate("user-1", token))
}

func TestCSRFRevoke(t *testing.T) {
	manager := auth.NewCSRFTokenManager(24 * time.Hour)

	token, err := manager.Generate("user-1")
	require.NoError(t, err)

	manager.Revoke("user-1")
	assert.False(t, manager.Validate("user-1", token))
}

func TestCSRFClearExpired(t *testing.T) {
	manager := auth.NewCSRFTokenManager(time.Hour)
	now := time.Now()
	manager.SetClock(func() time.Time { return now })

	_, err := manager.Generate("stale")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)

	freshToken, err := manager.Generate("fresh")
	require.NoError(t, err)

	assert.Equal(t, 1, manager.ClearExpired())
	assert.True(t, manager.Validate("fresh", freshToken))
}
