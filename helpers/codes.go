package helpers

import (
	"crypto/rand"
	"encoding/hex"
	mathrand "math/rand"
	"time"
)

const letterBytes = "abcdefghijklmnopqrstuvwxyz"

func randomLetters(n int) string {
	src := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[src.Intn(len(letterBytes))]
	}
	return string(b)
}

// GenerateCashierCode returns a short lowercase code like "c" + 3 letters.
func GenerateCashierCode() string {
	return "c" + randomLetters(3)
}

// GenerateSecretKey returns a 32-hex-char credential for a new cashier.
func GenerateSecretKey() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return randomLetters(32)
	}
	return hex.EncodeToString(b)
}
