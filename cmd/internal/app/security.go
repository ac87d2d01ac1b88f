package app

import (
	"errors"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"
)

// ValidateSecurityConfig enforces the token policy at startup.
//
// Fail fast: a production deployment that asked for HMAC fingerprints must not run with
// the plain SHA-256 fallback.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// The key is used as raw bytes, so the minimum is measured in bytes.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: MUTABAKAT_REQUIRE_TOKEN_HMAC=true but MUTABAKAT_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: MUTABAKAT_REQUIRE_TOKEN_HMAC=true but MUTABAKAT_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: MUTABAKAT_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}

	return nil
}
