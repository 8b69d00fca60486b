// Package cryptutil encrypts credential material at rest — the access
// and refresh tokens a User's row stores.
// The teacher's go.mod requires golang.org/x/crypto for this purpose via a
// pkg/utils/crypto helper that the retrieval snapshot doesn't include the
// source for; this reconstructs it using NaCl secretbox, the same library.
package cryptutil

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const keySize = 32

// ErrInvalidKey is returned when the configured encryption key is not a
// valid 32-byte secretbox key.
var ErrInvalidKey = errors.New("cryptutil: encryption key must decode to 32 bytes")

// Box encrypts and decrypts credential material with a single fixed key,
// held by the running process, never stored alongside the ciphertext.
type Box struct {
	key [keySize]byte
}

// NewBox builds a Box from a base64-encoded 32-byte key, as produced by
// `openssl rand -base64 32`.
func NewBox(base64Key string) (*Box, error) {
	raw, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	var b Box
	copy(b.key[:], raw)
	return &b, nil
}

// Seal encrypts plaintext, returning a base64 string safe for a text
// column: a random nonce followed by the sealed box.
func (b *Box) Seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("cryptutil: generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("cryptutil: decode ciphertext: %w", err)
	}
	if len(raw) < 24 {
		return "", errors.New("cryptutil: ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return "", errors.New("cryptutil: decryption failed, wrong key or corrupt data")
	}
	return string(plain), nil
}
