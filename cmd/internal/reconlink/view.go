package reconlink

import (
	"context"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/letter"

	"github.com/shopspring/decimal"
)

// View is the counterparty-safe projection of a link. It never carries the tax number,
// the OTP code, or internal identifiers beyond the caller's own reference code.
type View struct {
	ReferenceCode string
	State         State

	IsExpired  bool
	IsUsed     bool
	IsVerified bool

	ExpiresAt      time.Time
	ResponseStatus *ResponseStatus
	RespondedAt    *time.Time

	Policy Policy

	// Challenge progress, filled only while the matching challenge is pending.
	MaskedEmail       string
	AttemptsRemaining int
	LockedSeconds     int
	OtpExpiresIn      int

	Company Company

	// Gated fields, present only once verified.
	Counterparty *CounterpartyView
	Letter       *letter.Content
	Period       string
}

// CounterpartyView is the record data shown after verification.
type CounterpartyView struct {
	Name        string
	Amount      decimal.Decimal
	Currency    string
	BalanceType letter.Side
}

// GetPublicView composes link state, policy and, once verified, the rendered letter.
// Expired and answered links still produce a View so the caller can tell them apart.
func (s *Service) GetPublicView(ctx context.Context, ref string) (View, error) {
	rec, pol, err := s.load(ctx, ref)
	if err != nil {
		return View{}, s.observe(OpView, err)
	}

	now := s.now()
	l := rec.Link
	st := DeriveState(l, pol, now)

	v := View{
		ReferenceCode:  l.ReferenceCode,
		State:          st,
		IsExpired:      isExpired(l, now),
		IsUsed:         l.IsUsed,
		IsVerified:     st == StateVerified || st == StateResponded,
		ExpiresAt:      l.ExpiresAt,
		ResponseStatus: l.ResponseStatus,
		RespondedAt:    l.RespondedAt,
		Policy:         pol,
		Company: Company{
			Name:    rec.Company.Name,
			Address: rec.Company.Address,
			Phone:   rec.Company.Phone,
			Email:   rec.Company.Email,
		},
	}
	if st == StateExpired && l.IsVerified {
		v.IsVerified = true
	}

	switch st {
	case StateTaxPending:
		v.AttemptsRemaining = max(s.cfg.MaxTaxAttempts-l.VerificationAttempts, 0)
		if l.VerificationLockedUntil != nil {
			// The lock has elapsed; the next attempt starts a fresh window.
			v.AttemptsRemaining = s.cfg.MaxTaxAttempts
		}
	case StateLocked:
		v.LockedSeconds = (&LockedError{Remaining: lockRemaining(l, now)}).RemainingSeconds()
	case StateOtpPending:
		v.MaskedEmail = MaskEmail(rec.Counterparty.Email)
		if codeLive(l, now) {
			v.OtpExpiresIn = int(l.VerificationCodeExpiresAt.Sub(now).Seconds())
		}
	}
	if pol.RequireOTP && v.MaskedEmail == "" {
		v.MaskedEmail = MaskEmail(rec.Counterparty.Email)
	}

	if st == StateVerified || st == StateResponded {
		v.Counterparty = &CounterpartyView{
			Name:        rec.Counterparty.Name,
			Amount:      rec.Counterparty.Amount,
			Currency:    rec.Counterparty.Currency,
			BalanceType: rec.Counterparty.BalanceType,
		}
		content := letter.Render(rec.Reconciliation.Template, letter.Fields{
			Period:        rec.Reconciliation.Period,
			Amount:        rec.Counterparty.Amount,
			Currency:      rec.Counterparty.Currency,
			Side:          rec.Counterparty.BalanceType,
			RecipientName: rec.Counterparty.Name,
			CompanyName:   rec.Company.Name,
		})
		v.Letter = &content
		v.Period = rec.Reconciliation.Period
	}

	return v, s.observe(OpView, nil)
}
