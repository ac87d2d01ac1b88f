package reconlink

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestSubmitResponse_Dispute(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{})
	ctx := context.Background()

	res, err := f.svc.SubmitResponse(ctx, f.ref, ResponseInput{
		Status:           "dispute",
		Note:             strPtr("  Kayıtlarımızda farklı görünüyor  "),
		DisputedAmount:   decPtr("14250.005"),
		DisputedCurrency: strPtr("try"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Status != ResponseDispute || !res.RespondedAt.Equal(testEpoch) {
		t.Fatalf("unexpected result: %+v", res)
	}

	l := f.link(t)
	if !l.IsUsed || l.ResponseStatus == nil || *l.ResponseStatus != ResponseDispute {
		t.Fatalf("expected stored dispute, got %+v", l)
	}
	if l.IsVerified {
		t.Fatalf("expected is_verified to stay unset under an empty policy")
	}
	if l.DisputedAmount == nil || !l.DisputedAmount.Equal(decimal.RequireFromString("14250.01")) {
		t.Fatalf("expected amount rounded to 14250.01, got %v", l.DisputedAmount)
	}
	if l.DisputedCurrency == nil || *l.DisputedCurrency != "TRY" {
		t.Fatalf("expected TRY, got %v", l.DisputedCurrency)
	}
	if l.ResponseNote == nil || *l.ResponseNote != "Kayıtlarımızda farklı görünüyor" {
		t.Fatalf("expected trimmed note, got %v", l.ResponseNote)
	}

	_, err = f.svc.SubmitResponse(ctx, f.ref, ResponseInput{Status: "agree"})
	mustBeError(t, err, ErrAlreadyResponded)
	_, err = f.svc.GetPublicView(ctx, f.ref)
	if err != nil {
		t.Fatalf("view after response: %v", err)
	}
}

func TestSubmitResponse_DisputeValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{})
	ctx := context.Background()

	bad := []ResponseInput{
		{Status: "maybe"},
		{Status: "dispute", DisputedAmount: decPtr("10")},
		{Status: "dispute", Note: strPtr("   "), DisputedAmount: decPtr("10")},
		{Status: "dispute", Note: strPtr("x")},
		{Status: "dispute", Note: strPtr("x"), DisputedAmount: decPtr("0")},
		{Status: "dispute", Note: strPtr("x"), DisputedAmount: decPtr("-5")},
		{Status: "dispute", Note: strPtr("x"), DisputedAmount: decPtr("0.001")},
		{Status: "dispute", Note: strPtr("x"), DisputedAmount: decPtr("10"), DisputedCurrency: strPtr("TL")},
	}
	for i, in := range bad {
		_, err := f.svc.SubmitResponse(ctx, f.ref, in)
		mustBeError(t, err, ErrInvalidInput)
		if f.link(t).IsUsed {
			t.Fatalf("case %d: expected link to stay open", i)
		}
	}

	// A dispute without a currency takes the record's.
	if _, err := f.svc.SubmitResponse(ctx, f.ref, ResponseInput{
		Status:         "DISPUTE",
		Note:           strPtr("fark var"),
		DisputedAmount: decPtr("10"),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c := f.link(t).DisputedCurrency; c == nil || *c != "TRY" {
		t.Fatalf("expected defaulted currency, got %v", c)
	}
}

func TestSubmitResponse_AgreeIgnoresAmount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{})
	if _, err := f.svc.SubmitResponse(context.Background(), f.ref, ResponseInput{
		Status:         "agree",
		DisputedAmount: decPtr("99"),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	l := f.link(t)
	if l.DisputedAmount != nil || l.DisputedCurrency != nil || l.ResponseNote != nil {
		t.Fatalf("expected agree to store no dispute fields, got %+v", l)
	}
}

func TestSubmitResponse_RequiresVerification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireTax: true})
	ctx := context.Background()

	_, err := f.svc.SubmitResponse(ctx, f.ref, ResponseInput{Status: "agree"})
	mustBeError(t, err, ErrNotVerified)

	// Locked links are not verified either.
	for i := 0; i < 3; i++ {
		_, _ = f.svc.VerifyTax(ctx, f.ref, "0000")
	}
	_, err = f.svc.SubmitResponse(ctx, f.ref, ResponseInput{Status: "agree"})
	mustBeError(t, err, ErrNotVerified)

	f.clock.Advance(2 * time.Minute)
	if _, err := f.svc.VerifyTax(ctx, f.ref, "7890"); err != nil {
		t.Fatalf("verify tax: %v", err)
	}
	if _, err := f.svc.SubmitResponse(ctx, f.ref, ResponseInput{Status: "agree"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestSubmitResponse_NoteLength(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{})
	long := make([]rune, f.svc.Config().MaxNoteLength+1)
	for i := range long {
		long[i] = 'ğ'
	}
	_, err := f.svc.SubmitResponse(context.Background(), f.ref, ResponseInput{Status: "agree", Note: strPtr(string(long))})
	mustBeError(t, err, ErrInvalidInput)
}

func TestRespondedLink_EveryOperationLeavesItUnchanged(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireTax: true, RequireOTP: true})
	ctx := context.Background()

	if _, err := f.svc.VerifyTax(ctx, f.ref, "7890"); err != nil {
		t.Fatalf("verify tax: %v", err)
	}
	if err := f.svc.VerifyOtp(ctx, f.ref, f.mailer.last(t)); err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if _, err := f.svc.SubmitResponse(ctx, f.ref, ResponseInput{Status: "agree"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Past any lock window, so the tax path has nothing to reset either.
	f.clock.Advance(2 * f.svc.Config().LockDuration)

	before := f.link(t)
	eventsBefore := len(f.eventKinds())
	f.mailer.mu.Lock()
	sentBefore := len(f.mailer.sent)
	f.mailer.mu.Unlock()

	calls := []struct {
		name string
		call func() error
	}{
		{"verify tax correct", func() error { _, err := f.svc.VerifyTax(ctx, f.ref, "7890"); return err }},
		{"verify tax wrong", func() error { _, err := f.svc.VerifyTax(ctx, f.ref, "0000"); return err }},
		{"issue otp", func() error { _, err := f.svc.IssueOtp(ctx, f.ref); return err }},
		{"verify otp", func() error { return f.svc.VerifyOtp(ctx, f.ref, "111111") }},
		{"respond again", func() error {
			_, err := f.svc.SubmitResponse(ctx, f.ref, ResponseInput{
				Status:         "dispute",
				Note:           strPtr("ikinci cevap"),
				DisputedAmount: decPtr("1.00"),
			})
			return err
		}},
	}
	for _, tc := range calls {
		mustBeError(t, tc.call(), ErrAlreadyResponded)
		if got := f.link(t); !reflect.DeepEqual(got, before) {
			t.Fatalf("%s: link changed\nbefore=%+v\nafter=%+v", tc.name, before, got)
		}
	}

	if got := len(f.eventKinds()); got != eventsBefore {
		t.Fatalf("expected no new events, got %d want %d", got, eventsBefore)
	}
	f.mailer.mu.Lock()
	sentAfter := len(f.mailer.sent)
	f.mailer.mu.Unlock()
	if sentAfter != sentBefore {
		t.Fatalf("expected no OTP emails after response, got %d new", sentAfter-sentBefore)
	}
}
