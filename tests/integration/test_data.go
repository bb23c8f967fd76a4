package integration

import (
	"fmt"
	"time"
)

// TestUser generates unique test user credentials using timestamp
func TestUser(suffix string) (email, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}

// ExtractTokenFromResetURL pulls the token query parameter out of a
// password reset link captured by the mock email service
func ExtractTokenFromResetURL(resetURL string) string {
	const marker = "token="
	for i := 0; i+len(marker) <= len(resetURL); i++ {
		if resetURL[i:i+len(marker)] == marker {
			return resetURL[i+len(marker):]
		}
	}
	return ""
}
