package common

import "crypto/rand"

// GenerateRandByteArray returns size random bytes.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	_, _ = rand.Read(b)
	return b
}

// WipeByteArray zeroes the buffer in place.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
