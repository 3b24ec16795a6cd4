// Package token generates the short join codes players share to meet
// in a room.
package token

import (
	"crypto/rand"
	"encoding/base64"
)

// Generate returns a crypto-secure random code of length n. The code
// contains only the following characters:
// ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_
func Generate(n int) (string, error) {
	// base64 yields four characters per three bytes
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b)[0:n], nil
}
