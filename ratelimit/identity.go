package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
)

// ClientID derives a stable anonymous identity from the caller's IP and
// the first 50 characters of its user agent. Hashing keeps raw
// addresses out of logs and limiter state.
func ClientID(ip, userAgent string) string {
	if len(userAgent) > 50 {
		userAgent = userAgent[:50]
	}
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])[:16]
}
