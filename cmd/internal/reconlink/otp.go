package reconlink

import (
	"context"
	"strings"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"
)

// OtpIssue describes a freshly issued code without revealing it.
type OtpIssue struct {
	MaskedEmail string
	TTL         time.Duration
	// Delivered is false when the mailer handoff failed; the code is still valid.
	Delivered bool
}

// IssueOtp generates a new code for a link waiting on the OTP challenge, replacing any
// previous code and timer. The code is committed before delivery is attempted.
func (s *Service) IssueOtp(ctx context.Context, ref string) (OtpIssue, error) {
	_, pol, err := s.load(ctx, ref)
	if err != nil {
		return OtpIssue{}, s.observe(OpIssueOtp, err)
	}

	now := s.now()
	var code string

	rec, err := s.store.UpdateByReference(ctx, ref, func(r *Record) (Event, error) {
		l := &r.Link
		if err := gate(OpIssueOtp, DeriveState(*l, pol, now), *l, now); err != nil {
			return Event{}, err
		}

		c, err := s.newCode()
		if err != nil {
			return Event{}, err
		}
		exp := now.Add(s.cfg.OtpTTL)
		l.VerificationCode = &c
		l.VerificationCodeExpiresAt = &exp
		code = c
		return Event{Kind: EventOtpIssued, CreatedAt: now}, nil
	})
	if err != nil {
		return OtpIssue{}, s.observe(OpIssueOtp, err)
	}

	out := OtpIssue{
		MaskedEmail: MaskEmail(rec.Counterparty.Email),
		TTL:         s.cfg.OtpTTL,
		Delivered:   s.deliverOtp(ctx, rec, code),
	}
	s.log.Info("reconlink.otp.issued", "ref", token.Fingerprint(rec.Link.ReferenceCode), "delivered", out.Delivered)
	return out, s.observe(OpIssueOtp, nil)
}

// VerifyOtp checks a code. A correct code is consumed and the link becomes verified.
// No attempt limit applies; wrong guesses are recorded in the audit trail.
func (s *Service) VerifyOtp(ctx context.Context, ref, code string) error {
	code = strings.TrimSpace(code)
	if !isASCIIDigits(code, s.cfg.OtpDigits) {
		return s.observe(OpVerifyOtp, ErrInvalidInput)
	}
	_, pol, err := s.load(ctx, ref)
	if err != nil {
		return s.observe(OpVerifyOtp, err)
	}

	now := s.now()
	var failure error

	rec, err := s.store.UpdateByReference(ctx, ref, func(r *Record) (Event, error) {
		l := &r.Link
		if err := gate(OpVerifyOtp, DeriveState(*l, pol, now), *l, now); err != nil {
			return Event{}, err
		}
		if !codeLive(*l, now) {
			return Event{}, ErrCodeExpired
		}
		if !token.Equal(*l.VerificationCode, code) {
			failure = ErrVerificationFailed
			return Event{Kind: EventOtpFailed, CreatedAt: now}, nil
		}

		l.VerificationCode = nil
		l.VerificationCodeExpiresAt = nil
		l.IsVerified = true
		return Event{Kind: EventOtpVerified, CreatedAt: now}, nil
	})
	if err != nil {
		return s.observe(OpVerifyOtp, err)
	}
	fp := token.Fingerprint(rec.Link.ReferenceCode)
	if failure != nil {
		s.log.Info("reconlink.otp.failed", "ref", fp)
		return s.observe(OpVerifyOtp, failure)
	}
	s.log.Info("reconlink.otp.verified", "ref", fp)
	return s.observe(OpVerifyOtp, nil)
}

// MaskEmail keeps the first three characters of the local part and the domain,
// e.g. "ali***@example.com".
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return "***"
	}
	runes := []rune(local)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes) + "***@" + domain
}
