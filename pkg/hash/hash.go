package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	CodeLength = 6

	passcodeIterations = 10000
	passcodeKeyLen     = 32
)

// The salt is fixed so that equal codes always produce equal digests: the digest
// column is unique-indexed and doubles as duplicate detection.
var passcodeSalt = []byte("taskboard/passcode/v1")

// Passcode returns the hex digest stored for a plaintext passcode.
func Passcode(code string) string {
	key := pbkdf2.Key([]byte(code), passcodeSalt, passcodeIterations, passcodeKeyLen, sha256.New)
	return hex.EncodeToString(key)
}

// ValidCode reports whether code is exactly six ASCII digits.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
