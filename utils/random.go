package utils

import (
	"crypto/rand"
	"fmt"
)

// RandomString returns 32 hex characters. The media server uses it to make
// served paths unguessable.
func RandomString() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("can't generate a random number: %w", err)
	}
	return fmt.Sprintf("%X", b), nil
}
