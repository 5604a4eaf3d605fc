// Package crypto generates unguessable tokens.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomToken returns n random bytes encoded as unpadded URL-safe base64,
// suitable for OAuth state values and similar one-time nonces.
func RandomToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("crypto: token length must be positive, got %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto: read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
