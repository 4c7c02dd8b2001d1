package utils

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashClientIP returns a salted hash of a client IP. Raw IPs are never
// persisted; click and attribution rows only carry this digest.
func HashClientIP(ip, salt string) string {
	return hashWithSalt(ip, salt)
}

// HashUserAgent returns a salted hash of a user agent string.
func HashUserAgent(userAgent, salt string) string {
	return hashWithSalt(userAgent, salt)
}

func hashWithSalt(value, salt string) string {
	sum := sha3.Sum256([]byte(salt + ":" + value))
	return hex.EncodeToString(sum[:])
}
