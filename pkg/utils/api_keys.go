package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandomKey returns a URL-safe base64 key built from length random
// bytes. Operator API keys are minted with it.
func GenerateRandomKey(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}
