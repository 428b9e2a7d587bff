package common

import "crypto/rand"

// GenerateRandBytes returns n cryptographically random bytes. It panics if
// the system source of randomness is unavailable.
func GenerateRandBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeBytes overwrites the contents of b with zeros. Useful for removing
// passwords and derived keys from memory after use.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
