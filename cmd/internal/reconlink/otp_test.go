package reconlink

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTaxThenOtp_FullFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireTax: true, RequireOTP: true})
	ctx := context.Background()

	_, err := f.svc.IssueOtp(ctx, f.ref)
	mustBeError(t, err, ErrChallengeNotPending)

	res, err := f.svc.VerifyTax(ctx, f.ref, "7890")
	if err != nil {
		t.Fatalf("verify tax: %v", err)
	}
	if !res.NeedsOTP || res.Verified {
		t.Fatalf("expected otp to be required, got %+v", res)
	}
	if res.MaskedEmail != "ali***@example.com" || !res.OTPDelivered || res.OTPTTL != 5*time.Minute {
		t.Fatalf("unexpected tax result: %+v", res)
	}

	code := f.mailer.last(t)
	if err := f.svc.VerifyOtp(ctx, f.ref, "999999"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected wrong code to fail, got %v", err)
	}
	if err := f.svc.VerifyOtp(ctx, f.ref, code); err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	l := f.link(t)
	if !l.IsVerified || l.VerificationCode != nil || l.VerificationCodeExpiresAt != nil {
		t.Fatalf("expected consumed code and verified link, got %+v", l)
	}

	// Consumed codes cannot be replayed.
	mustBeError(t, f.svc.VerifyOtp(ctx, f.ref, code), ErrCodeExpired)
}

func TestIssueOtp_ResendInvalidatesPreviousCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireOTP: true})
	ctx := context.Background()

	if _, err := f.svc.IssueOtp(ctx, f.ref); err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	first := f.mailer.last(t)

	f.clock.Advance(time.Minute)
	iss, err := f.svc.IssueOtp(ctx, f.ref)
	if err != nil {
		t.Fatalf("reissue otp: %v", err)
	}
	second := f.mailer.last(t)
	if first == second {
		t.Fatalf("expected a fresh code")
	}
	if iss.TTL != 5*time.Minute || !iss.Delivered {
		t.Fatalf("unexpected issue result: %+v", iss)
	}

	mustBeError(t, f.svc.VerifyOtp(ctx, f.ref, first), ErrVerificationFailed)
	if err := f.svc.VerifyOtp(ctx, f.ref, second); err != nil {
		t.Fatalf("verify second code: %v", err)
	}
}

func TestVerifyOtp_ExpiresAtDeadline(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireOTP: true})
	ctx := context.Background()

	mustBeError(t, f.svc.VerifyOtp(ctx, f.ref, "111111"), ErrCodeExpired)

	if _, err := f.svc.IssueOtp(ctx, f.ref); err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	code := f.mailer.last(t)

	f.clock.Advance(5 * time.Minute)
	mustBeError(t, f.svc.VerifyOtp(ctx, f.ref, code), ErrCodeExpired)
	if f.link(t).IsVerified {
		t.Fatalf("expected link to stay unverified")
	}
}

func TestVerifyOtp_WrongGuessesAreAudited(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireOTP: true})
	ctx := context.Background()

	if _, err := f.svc.IssueOtp(ctx, f.ref); err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	for i := 0; i < 5; i++ {
		mustBeError(t, f.svc.VerifyOtp(ctx, f.ref, "000000"), ErrVerificationFailed)
	}
	mustBeError(t, f.svc.VerifyOtp(ctx, f.ref, "12345"), ErrInvalidInput)

	failed := 0
	for _, k := range f.eventKinds() {
		if k == EventOtpFailed {
			failed++
		}
	}
	if failed != 5 {
		t.Fatalf("expected 5 otp.failed events, got %d", failed)
	}
}

func TestIssueOtp_DeliveryFailureKeepsCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireOTP: true})
	f.mailer.fail = errors.New("smtp down")

	iss, err := f.svc.IssueOtp(context.Background(), f.ref)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	if iss.Delivered {
		t.Fatalf("expected delivery to be reported as failed")
	}
	l := f.link(t)
	if l.VerificationCode == nil || *l.VerificationCode != "111111" {
		t.Fatalf("expected committed code, got %v", l.VerificationCode)
	}
	if err := f.svc.VerifyOtp(context.Background(), f.ref, "111111"); err != nil {
		t.Fatalf("verify committed code: %v", err)
	}
}

func TestMaskEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"ali.veli@example.com": "ali***@example.com",
		"ab@x.io":              "ab***@x.io",
		"şükrü@örnek.tr":       "şük***@örnek.tr",
		"broken":               "***",
		"@nodomain":            "***",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Fatalf("MaskEmail(%q): expected %q, got %q", in, want, got)
		}
	}
}
