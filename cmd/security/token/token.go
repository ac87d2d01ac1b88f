package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "MUTABAKAT_TOKEN_HMAC_KEY"

	defaultOpaqueBytes = 32
	fingerprintHexLen  = 16
	fingerprintInfo    = "mutabakat/reference-fingerprint/v1"
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// HMACEnabled reports whether the env key is present (non-empty after trim).
// Note: This does not enforce minimum length. Use HMACKeyFromEnv for policy checks.
func HMACEnabled() bool {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	return raw != ""
}

// DeriveKey expands secret into a 32-byte key bound to purpose (HKDF-SHA256).
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrHMACKeyMissing
	}
	out := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, nil, []byte(purpose))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return out, nil
}

// Fingerprint returns a short, stable, non-reversible tag for a reference code.
// It is what logs and audit rows carry instead of the credential itself.
// With MUTABAKAT_TOKEN_HMAC_KEY set, the tag is keyed (HKDF-derived); otherwise plain SHA-256.
func Fingerprint(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var full string
	if key := strings.TrimSpace(os.Getenv(HMACEnvKey)); key != "" {
		derived, err := DeriveKey([]byte(key), fingerprintInfo)
		if err == nil {
			full = HashHMACSHA256Hex(s, derived)
		}
	}
	if full == "" {
		full = HashSHA256Hex(s)
	}
	return full[:fingerprintHexLen]
}

// NewOpaqueToken returns a cryptographically random, URL-safe token (base64url, no padding).
func NewOpaqueToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = defaultOpaqueBytes
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewNumericCode returns a uniformly random decimal string of exactly digits characters.
// Leading zeros are kept, so every value in [0, 10^digits) is reachable.
func NewNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", ErrInvalidLength
	}
	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

// Equal compares two secrets in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
