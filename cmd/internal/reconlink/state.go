package reconlink

import "time"

// State is the derived, explicit state of a link. It is computed from the stored fields
// and the current policy on every request, never persisted.
type State string

const (
	StateTaxPending State = "TAX_PENDING"
	StateLocked     State = "LOCKED"
	StateOtpPending State = "OTP_PENDING"
	StateVerified   State = "VERIFIED"
	StateResponded  State = "RESPONDED"
	StateExpired    State = "EXPIRED"
)

// Terminal reports whether no operation can move the link any further.
func (s State) Terminal() bool { return s == StateResponded || s == StateExpired }

// Op names the operations gated by the transition table.
type Op string

const (
	OpVerifyTax Op = "verify_tax"
	OpIssueOtp  Op = "issue_otp"
	OpVerifyOtp Op = "verify_otp"
	OpRespond   Op = "respond"
	OpView      Op = "view"
	OpIssueLink Op = "issue_link"
)

// DeriveState maps stored fields plus policy to one State.
//
// Order matters: a response outranks expiry (the answer stays on record), expiry outranks
// everything else, and verification is satisfied either by the stored flag or by the
// policy needing nothing more.
func DeriveState(l Link, p Policy, now time.Time) State {
	switch {
	case l.IsUsed:
		return StateResponded
	case isExpired(l, now):
		return StateExpired
	case l.IsVerified:
		return StateVerified
	}

	taxDone := !p.RequireTax || l.TaxVerifiedAt != nil
	if taxDone && !p.RequireOTP {
		return StateVerified
	}
	if !taxDone {
		if lockActive(l, now) {
			return StateLocked
		}
		return StateTaxPending
	}
	return StateOtpPending
}

// transitions lists, per operation, the only states it may start from.
var transitions = map[Op][]State{
	OpVerifyTax: {StateTaxPending},
	OpIssueOtp:  {StateOtpPending},
	OpVerifyOtp: {StateOtpPending},
	OpRespond:   {StateVerified},
}

// gate is the single transition check every mutating operation goes through.
func gate(op Op, st State, l Link, now time.Time) error {
	switch st {
	case StateResponded:
		return ErrAlreadyResponded
	case StateExpired:
		return ErrExpired
	}
	for _, allowed := range transitions[op] {
		if st == allowed {
			return nil
		}
	}

	switch {
	case op == OpVerifyTax && st == StateLocked:
		return &LockedError{Remaining: lockRemaining(l, now)}
	case op == OpRespond:
		return ErrNotVerified
	case op == OpVerifyOtp && st == StateVerified:
		// The code was consumed when the link was verified.
		return ErrCodeExpired
	default:
		return ErrChallengeNotPending
	}
}

func isExpired(l Link, now time.Time) bool {
	return now.After(l.ExpiresAt)
}

func lockActive(l Link, now time.Time) bool {
	return l.VerificationLockedUntil != nil && now.Before(*l.VerificationLockedUntil)
}

func lockRemaining(l Link, now time.Time) time.Duration {
	if !lockActive(l, now) {
		return 0
	}
	return l.VerificationLockedUntil.Sub(now)
}

func codeLive(l Link, now time.Time) bool {
	return l.VerificationCode != nil &&
		l.VerificationCodeExpiresAt != nil &&
		now.Before(*l.VerificationCodeExpiresAt)
}
