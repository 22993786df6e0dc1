package service

import (
	"crypto/rand"
	"fmt"
)

const (
	sessionTokenLength = 48
	tokenAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewSessionToken returns a random alphanumeric token. Bytes at or above the
// largest multiple of the alphabet size are discarded so every symbol is equally likely.
func NewSessionToken() (string, error) {
	const limit = 256 - 256%len(tokenAlphabet)

	out := make([]byte, 0, sessionTokenLength)
	buf := make([]byte, sessionTokenLength)
	for len(out) < sessionTokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == sessionTokenLength {
				break
			}
		}
	}
	return string(out), nil
}
