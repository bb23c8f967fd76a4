package security

import (
	"crypto/sha256"
	"fmt"
)

// DeviceFingerprint derives a stable device identifier from the client IP
// and User-Agent. The first 32 hex characters of the SHA-256 digest keep
// the value compact enough for indexing while remaining collision-safe
// for throttling purposes.
func DeviceFingerprint(ipAddress, userAgent string) string {
	data := []byte(fmt.Sprintf("%s:%s", ipAddress, userAgent))
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)[:32]
}
