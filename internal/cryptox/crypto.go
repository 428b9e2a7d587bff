// Package cryptox implements the encryption boundary of the local store:
// password-based key derivation, a key verifier for wrong-password detection,
// and the AES-GCM codec applied to encrypted document fields.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"github.com/gabrielpoca/journal/internal/common"
	"golang.org/x/crypto/argon2"
)

var ErrDecrypt = errors.New("decryption failed")

// DeriveMasterKey derives a 32-byte AES key from the user's encryption
// password and a per-store random salt using Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns a value safe to persist in plaintext that proves
// knowledge of the master key without revealing it. A store opened with a
// different password produces a different verifier.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// VerifyKey reports whether masterKey matches the persisted verifier,
// in constant time.
func VerifyKey(masterKey, verifier []byte) bool {
	candidate := MakeVerifier(masterKey)
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}

// EncryptField seals a plaintext field value with AES-GCM under the master
// key. The random nonce is prepended to the ciphertext and the whole value is
// base64-encoded, so an encrypted field stays a single opaque string in both
// local rows and replicated documents.
func EncryptField(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := common.GenerateRandBytes(aesgcm.NonceSize())
	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptField reverses EncryptField. It returns ErrDecrypt when the value
// was sealed under a different key or has been tampered with.
func DecryptField(encoded string, key []byte) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < aesgcm.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
