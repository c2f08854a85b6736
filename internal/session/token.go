package session

import (
	"crypto/rand"
	"encoding/base64"
)

// TokenLength is the number of random bytes in a session ID (256 bits).
const TokenLength = 32

// GenerateToken returns a random base64 URL-encoded session ID.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
