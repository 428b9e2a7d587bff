package common

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandBytes_LengthAndVariety(t *testing.T) {
	a := GenerateRandBytes(32)
	b := GenerateRandBytes(32)

	require.Len(t, a, 32)
	require.Len(t, b, 32)
	assert.False(t, bytes.Equal(a, b), "two random reads should differ")
}

func TestWipeBytes(t *testing.T) {
	b := []byte("secret password")
	WipeBytes(b)
	assert.Equal(t, make([]byte, len("secret password")), b)

	// nil is a no-op
	WipeBytes(nil)
}
