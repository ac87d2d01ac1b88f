package reconlink

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	// ErrInvalidInput is returned for malformed digits, codes, statuses or amounts.
	ErrInvalidInput = errors.New("invalid_input")

	// ErrNotFound is returned for unknown reference codes and for links whose company is gone.
	ErrNotFound = errors.New("not_found")

	// ErrExpired is returned once a link is past its expiry.
	ErrExpired = errors.New("expired")

	// ErrAlreadyResponded is returned once a response has been recorded.
	ErrAlreadyResponded = errors.New("already_responded")

	// ErrLocked is returned while the tax challenge is cooling down. See LockedError.
	ErrLocked = errors.New("locked")

	// ErrVerificationFailed is returned for wrong tax digits or a wrong OTP.
	ErrVerificationFailed = errors.New("verification_failed")

	// ErrNotVerified is returned when a response is submitted before the challenges pass.
	ErrNotVerified = errors.New("not_verified")

	// ErrCodeExpired is returned when no OTP is outstanding or it has timed out.
	// The counterparty should request a new code.
	ErrCodeExpired = errors.New("code_expired")

	// ErrChallengeNotPending is returned when a challenge is called out of order.
	ErrChallengeNotPending = errors.New("challenge_not_pending")

	// ErrDeliveryFailed marks a failed OTP or link email handoff. It is logged, never returned
	// from IssueOtp.
	ErrDeliveryFailed = errors.New("delivery_failed")
)

// LockedError carries the remaining cooldown of a locked tax challenge.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", ErrLocked.Error(), e.RemainingSeconds())
}

func (e *LockedError) Unwrap() error { return ErrLocked }

// RemainingSeconds rounds the remaining cooldown up to whole seconds.
func (e *LockedError) RemainingSeconds() int {
	if e == nil || e.Remaining <= 0 {
		return 0
	}
	return int(math.Ceil(e.Remaining.Seconds()))
}

// FailedError carries the attempts left after a wrong tax answer.
type FailedError struct {
	AttemptsRemaining int
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%s: %d attempts remaining", ErrVerificationFailed.Error(), e.AttemptsRemaining)
}

func (e *FailedError) Unwrap() error { return ErrVerificationFailed }
