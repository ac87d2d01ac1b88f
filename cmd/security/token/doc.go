// Package token provides the credential primitives used by reconciliation links.
//
// It generates reference codes (opaque base64url tokens) and OTP codes (uniform
// numeric strings), compares them in constant time, and derives the short
// fingerprints that stand in for reference codes in logs and audit rows.
//
// Environment:
// - MUTABAKAT_TOKEN_HMAC_KEY: when set, fingerprints are keyed with an HKDF-derived key.
// Policy:
//   - If RequireTokenHMAC=true, the server refuses to start unless the key is at least
//     32 bytes (see app.ValidateSecurityConfig).
package token
