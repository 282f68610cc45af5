// Package secret implements authenticated encryption for the provider access
// credential held in the client session.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

// ErrInvalidKey is returned by NewCipher when the key is missing or not
// exactly KeySize bytes. This is a configuration fault: the process should
// refuse to serve requests without a usable key.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes")

// ErrDecrypt is returned when an encrypted blob cannot be decrypted: it is
// malformed, truncated, tampered with, or was sealed under a different key.
// Callers treat it as "no credential" and route the user to setup. The
// underlying cause is never included in user-facing output.
var ErrDecrypt = errors.New("credential blob failed to decrypt")

// Cipher encrypts and decrypts a single opaque credential with AES-256-GCM.
// The key is supplied once at construction and immutable for the process
// lifetime; rotation happens by restarting with a new key, which invalidates
// every previously sealed blob.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidKey, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns a base64-encoded blob containing the
// random nonce (12 bytes) prepended to the ciphertext and tag. The output is
// opaque: neither it nor the plaintext is ever logged.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any failure, from bad base64 to
// a tag mismatch, is reported as ErrDecrypt so a tampered blob can never
// surface as a plausible-looking credential.
func (c *Cipher) Decrypt(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode", ErrDecrypt)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("%w: blob too short", ErrDecrypt)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}

	return plaintext, nil
}

// Fingerprint returns the SHA-256 hex digest of the credential. It is the
// only credential-derived value allowed to leave the core (as a cache key);
// the digest is one-way and carries no authorization.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
