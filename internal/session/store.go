// Package session stores the encrypted provider credential in a client-held
// cookie, so the server keeps no durable per-user state.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odanree/credit-history-app/internal/secret"
)

const cookieName = "credential"

// ErrNoCredential is returned by Retrieve when the session holds no stored
// credential. Callers route the user to the setup flow; this is an expected
// condition, not a server error.
var ErrNoCredential = errors.New("no credential in session")

// Store reads and writes the single encrypted credential a session may hold.
// The cookie value is the AES-GCM blob plus the issuance timestamp; the GCM
// tag makes the blob tamper-evident, and the plaintext credential never
// enters the cookie, a URL, or a log line.
type Store struct {
	cipher   *secret.Cipher
	lifetime time.Duration
	secure   bool
}

// NewStore creates a Store. lifetime bounds the cookie's Max-Age; secure
// controls the cookie Secure flag (disable only for local development).
func NewStore(cipher *secret.Cipher, lifetime time.Duration, secure bool) *Store {
	return &Store{cipher: cipher, lifetime: lifetime, secure: secure}
}

// Save encrypts the credential and writes it into the session cookie along
// with the issuance timestamp, replacing any previously stored credential.
func (s *Store) Save(w http.ResponseWriter, credential string) error {
	blob, err := s.cipher.Encrypt([]byte(credential))
	if err != nil {
		return fmt.Errorf("encrypt credential: %w", err)
	}

	value := blob + "|" + strconv.FormatInt(time.Now().Unix(), 10)
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.lifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
	})
	return nil
}

// Retrieve reads the cookie and decrypts the stored credential. It returns
// ErrNoCredential when the session holds none, and a secret.ErrDecrypt-
// wrapped error when the blob does not verify (tampering, or the process key
// rotated since issuance). Callers treat both the same way: force re-setup.
func (s *Store) Retrieve(r *http.Request) (string, error) {
	blob, _, err := s.read(r)
	if err != nil {
		return "", err
	}

	plaintext, err := s.cipher.Decrypt(blob)
	if err != nil {
		return "", fmt.Errorf("session credential: %w", err)
	}
	return string(plaintext), nil
}

// IssuedAt returns when the stored credential was written, and false when
// the session holds none or the timestamp is unreadable.
func (s *Store) IssuedAt(r *http.Request) (time.Time, bool) {
	_, issued, err := s.read(r)
	if err != nil {
		return time.Time{}, false
	}
	return issued, true
}

// Present reports whether the session carries a credential blob, without
// decrypting it.
func (s *Store) Present(r *http.Request) bool {
	_, _, err := s.read(r)
	return err == nil
}

// Clear removes the credential from the session.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
	})
}

// read parses the cookie into its blob and issuance timestamp.
func (s *Store) read(r *http.Request) (blob string, issued time.Time, err error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", time.Time{}, ErrNoCredential
	}

	// The blob is base64 and cannot contain '|', so the last separator wins.
	idx := strings.LastIndexByte(cookie.Value, '|')
	if idx < 0 {
		return "", time.Time{}, ErrNoCredential
	}

	unix, parseErr := strconv.ParseInt(cookie.Value[idx+1:], 10, 64)
	if parseErr != nil {
		return "", time.Time{}, ErrNoCredential
	}

	return cookie.Value[:idx], time.Unix(unix, 0).UTC(), nil
}
