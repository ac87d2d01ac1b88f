package reconlink

import (
	"context"
	"strings"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"
)

// TaxResult is the outcome of a passing tax challenge.
type TaxResult struct {
	// Verified is true when no further challenge is required.
	Verified bool
	// NeedsOTP is true when a code was issued and must be entered next.
	NeedsOTP bool
	// MaskedEmail and OTPTTL describe the issued code when NeedsOTP is set.
	MaskedEmail  string
	OTPTTL       time.Duration
	OTPDelivered bool
}

// VerifyTax checks the last four characters of the counterparty's tax number.
//
// Failures are committed before they are returned: a *FailedError or *LockedError
// always reflects a persisted attempt counter.
func (s *Service) VerifyTax(ctx context.Context, ref, last4 string) (TaxResult, error) {
	if !isASCIIDigits(last4, 4) {
		return TaxResult{}, s.observe(OpVerifyTax, ErrInvalidInput)
	}
	_, pol, err := s.load(ctx, ref)
	if err != nil {
		return TaxResult{}, s.observe(OpVerifyTax, err)
	}

	now := s.now()
	var (
		res     TaxResult
		failure error
		code    string
	)

	rec, err := s.store.UpdateByReference(ctx, ref, func(r *Record) (Event, error) {
		l := &r.Link

		// An elapsed lock opens a fresh window of attempts.
		if l.VerificationLockedUntil != nil && !now.Before(*l.VerificationLockedUntil) {
			l.VerificationAttempts = 0
			l.VerificationLockedUntil = nil
		}

		if err := gate(OpVerifyTax, DeriveState(*l, pol, now), *l, now); err != nil {
			return Event{}, err
		}

		if !taxSuffixMatches(r.Counterparty.TaxNumber, last4) {
			l.VerificationAttempts++
			if l.VerificationAttempts >= s.cfg.MaxTaxAttempts {
				until := now.Add(s.cfg.LockDuration)
				l.VerificationLockedUntil = &until
				failure = &LockedError{Remaining: s.cfg.LockDuration}
				return Event{Kind: EventTaxLocked, CreatedAt: now, Meta: map[string]any{
					"attempts":     l.VerificationAttempts,
					"locked_until": until,
				}}, nil
			}
			failure = &FailedError{AttemptsRemaining: s.cfg.MaxTaxAttempts - l.VerificationAttempts}
			return Event{Kind: EventTaxFailed, CreatedAt: now, Meta: map[string]any{
				"attempts": l.VerificationAttempts,
			}}, nil
		}

		l.VerificationAttempts = 0
		l.VerificationLockedUntil = nil
		l.TaxVerifiedAt = &now

		if pol.RequireOTP {
			c, err := s.newCode()
			if err != nil {
				return Event{}, err
			}
			exp := now.Add(s.cfg.OtpTTL)
			l.VerificationCode = &c
			l.VerificationCodeExpiresAt = &exp
			code = c
			res = TaxResult{NeedsOTP: true, OTPTTL: s.cfg.OtpTTL}
			return Event{Kind: EventTaxPassed, CreatedAt: now, Meta: map[string]any{"otp_issued": true}}, nil
		}

		l.IsVerified = true
		res = TaxResult{Verified: true}
		return Event{Kind: EventTaxPassed, CreatedAt: now}, nil
	})
	if err != nil {
		return TaxResult{}, s.observe(OpVerifyTax, err)
	}

	fp := token.Fingerprint(rec.Link.ReferenceCode)
	if failure != nil {
		if _, locked := failure.(*LockedError); locked {
			s.log.Warn("reconlink.tax.locked", "ref", fp, "attempts", rec.Link.VerificationAttempts)
		} else {
			s.log.Info("reconlink.tax.failed", "ref", fp, "attempts", rec.Link.VerificationAttempts)
		}
		return TaxResult{}, s.observe(OpVerifyTax, failure)
	}

	if code != "" {
		res.MaskedEmail = MaskEmail(rec.Counterparty.Email)
		res.OTPDelivered = s.deliverOtp(ctx, rec, code)
	}
	s.log.Info("reconlink.tax.passed", "ref", fp, "needs_otp", res.NeedsOTP)
	return res, s.observe(OpVerifyTax, nil)
}

// taxSuffixMatches compares the last four characters of the registered tax number with
// the answer. Separators are ignored; the comparison is constant-time.
func taxSuffixMatches(taxNumber, last4 string) bool {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '.':
			return -1
		}
		return r
	}, taxNumber)
	if len(clean) < 4 {
		return false
	}
	return token.Equal(clean[len(clean)-4:], last4)
}
