package reconlink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestVerifyTax_LockAfterThreeFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireTax: true})
	ctx := context.Background()

	for i, wantLeft := range []int{2, 1} {
		_, err := f.svc.VerifyTax(ctx, f.ref, "0000")
		var fe *FailedError
		if !errors.As(err, &fe) {
			t.Fatalf("attempt %d: expected FailedError, got %v", i+1, err)
		}
		if fe.AttemptsRemaining != wantLeft {
			t.Fatalf("attempt %d: expected %d remaining, got %d", i+1, wantLeft, fe.AttemptsRemaining)
		}
	}

	_, err := f.svc.VerifyTax(ctx, f.ref, "0000")
	var le *LockedError
	if !errors.As(err, &le) {
		t.Fatalf("third attempt: expected LockedError, got %v", err)
	}
	if le.RemainingSeconds() != 60 {
		t.Fatalf("expected 60s lock, got %d", le.RemainingSeconds())
	}

	l := f.link(t)
	if l.VerificationAttempts != 3 {
		t.Fatalf("expected 3 attempts stored, got %d", l.VerificationAttempts)
	}
	if l.VerificationLockedUntil == nil || !l.VerificationLockedUntil.Equal(testEpoch.Add(60*time.Second)) {
		t.Fatalf("expected lock until now+60s, got %v", l.VerificationLockedUntil)
	}

	// The right answer is refused while locked and does not count.
	f.clock.Advance(20 * time.Second)
	_, err = f.svc.VerifyTax(ctx, f.ref, "7890")
	if !errors.As(err, &le) {
		t.Fatalf("expected LockedError while locked, got %v", err)
	}
	if le.RemainingSeconds() != 40 {
		t.Fatalf("expected 40s remaining, got %d", le.RemainingSeconds())
	}
	if got := f.link(t).VerificationAttempts; got != 3 {
		t.Fatalf("expected attempts unchanged while locked, got %d", got)
	}

	want := []string{EventLinkIssued, EventTaxFailed, EventTaxFailed, EventTaxLocked}
	got := f.eventKinds()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestVerifyTax_ElapsedLockStartsFreshWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireTax: true})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = f.svc.VerifyTax(ctx, f.ref, "0000")
	}
	f.clock.Advance(61 * time.Second)

	_, err := f.svc.VerifyTax(ctx, f.ref, "0000")
	var fe *FailedError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FailedError after lock elapsed, got %v", err)
	}
	if fe.AttemptsRemaining != 2 {
		t.Fatalf("expected 2 remaining after reset, got %d", fe.AttemptsRemaining)
	}

	res, err := f.svc.VerifyTax(ctx, f.ref, "7890")
	if err != nil {
		t.Fatalf("verify tax: %v", err)
	}
	if !res.Verified || res.NeedsOTP {
		t.Fatalf("expected verified without otp, got %+v", res)
	}
	l := f.link(t)
	if !l.IsVerified || l.VerificationAttempts != 0 || l.VerificationLockedUntil != nil {
		t.Fatalf("expected clean verified link, got %+v", l)
	}
}

func TestVerifyTax_InvalidInputDoesNotCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireTax: true})
	for _, in := range []string{"", "123", "12345", "12a4", "١٢٣٤"} {
		_, err := f.svc.VerifyTax(context.Background(), f.ref, in)
		mustBeError(t, err, ErrInvalidInput)
	}
	if got := f.link(t).VerificationAttempts; got != 0 {
		t.Fatalf("expected no attempts recorded, got %d", got)
	}
}

func TestVerifyTax_SeparatorsIgnored(t *testing.T) {
	t.Parallel()

	if !taxSuffixMatches("123 456-78.90", "7890") {
		t.Fatalf("expected separators to be ignored")
	}
	if taxSuffixMatches("12", "0012") {
		t.Fatalf("expected short tax numbers to never match")
	}
}

func TestVerifyTax_OutOfOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireOTP: true})
	_, err := f.svc.VerifyTax(context.Background(), f.ref, "7890")
	mustBeError(t, err, ErrChallengeNotPending)

	g := newFixture(t, Policy{})
	_, err = g.svc.VerifyTax(context.Background(), g.ref, "7890")
	mustBeError(t, err, ErrChallengeNotPending)
}

func TestVerifyTax_ConcurrentWrongGuessesLockOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireTax: true})

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyTax(context.Background(), f.ref, "0000")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	failed, locked := 0, 0
	for err := range errs {
		switch {
		case errors.Is(err, ErrLocked):
			locked++
		case errors.Is(err, ErrVerificationFailed):
			failed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if failed != 2 || locked != n-2 {
		t.Fatalf("expected 2 failed and %d locked, got %d and %d", n-2, failed, locked)
	}
	if got := f.link(t).VerificationAttempts; got != 3 {
		t.Fatalf("expected exactly 3 attempts stored, got %d", got)
	}
}

func TestVerifyTax_MissingCompanyIsNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireTax: true})
	f.store.DeleteCompany(testCompanyID)

	_, err := f.svc.VerifyTax(context.Background(), f.ref, "7890")
	mustBeError(t, err, ErrNotFound)
	_, err = f.svc.GetPublicView(context.Background(), f.ref)
	mustBeError(t, err, ErrNotFound)
}

func TestVerifyTax_UnknownReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Policy{RequireTax: true})
	_, err := f.svc.VerifyTax(context.Background(), "nope", "7890")
	mustBeError(t, err, ErrNotFound)
	if f.metrics.count(string(OpVerifyTax), "not_found") != 1 {
		t.Fatalf("expected not_found to be observed")
	}
}
