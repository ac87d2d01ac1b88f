package reconlink

import "context"

// Challenge is one identity check a counterparty may have to pass.
type Challenge string

const (
	// ChallengeTax asks for the last four characters of the registered tax number.
	ChallengeTax Challenge = "tax"
	// ChallengeOTP asks for a six-digit code mailed to the registered address.
	ChallengeOTP Challenge = "otp"
)

// Policy is a company's verification configuration. It is never stored per link.
type Policy struct {
	RequireTax bool
	RequireOTP bool
}

// Challenges returns the ordered sequence of challenges this policy demands.
func (p Policy) Challenges() []Challenge {
	out := make([]Challenge, 0, 2)
	if p.RequireTax {
		out = append(out, ChallengeTax)
	}
	if p.RequireOTP {
		out = append(out, ChallengeOTP)
	}
	return out
}

// None reports whether the policy requires no challenge at all.
func (p Policy) None() bool { return !p.RequireTax && !p.RequireOTP }

// PolicyResolver reads the owning company's verification policy.
//
// Implementations must return ErrNotFound when the company does not exist; callers never
// fall back to "no verification".
type PolicyResolver interface {
	ResolvePolicy(ctx context.Context, companyID string) (Policy, error)
}
