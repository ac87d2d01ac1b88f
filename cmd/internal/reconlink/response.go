package reconlink

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"

	"github.com/shopspring/decimal"
)

// ResponseInput is the counterparty's answer as submitted.
type ResponseInput struct {
	Status           string
	Note             *string
	DisputedAmount   *decimal.Decimal
	DisputedCurrency *string
}

// ResponseResult confirms a recorded answer.
type ResponseResult struct {
	ReferenceCode string
	Status        ResponseStatus
	RespondedAt   time.Time
}

// SubmitResponse records the final agree/dispute answer. It is the terminal transition:
// afterwards every operation reports ErrAlreadyResponded.
func (s *Service) SubmitResponse(ctx context.Context, ref string, in ResponseInput) (ResponseResult, error) {
	_, pol, err := s.load(ctx, ref)
	if err != nil {
		return ResponseResult{}, s.observe(OpRespond, err)
	}

	now := s.now()
	var status ResponseStatus

	rec, err := s.store.UpdateByReference(ctx, ref, func(r *Record) (Event, error) {
		l := &r.Link
		if err := gate(OpRespond, DeriveState(*l, pol, now), *l, now); err != nil {
			return Event{}, err
		}

		st, note, amount, currency, err := s.validateResponse(in, r.Counterparty.Currency)
		if err != nil {
			return Event{}, err
		}

		l.ResponseStatus = &st
		l.ResponseNote = note
		l.DisputedAmount = amount
		l.DisputedCurrency = currency
		l.RespondedAt = &now
		l.IsUsed = true
		status = st

		meta := map[string]any{"status": string(st)}
		if amount != nil {
			meta["disputed_amount"] = amount.String()
			meta["disputed_currency"] = *currency
		}
		return Event{Kind: EventResponseRecorded, CreatedAt: now, Meta: meta}, nil
	})
	if err != nil {
		return ResponseResult{}, s.observe(OpRespond, err)
	}

	s.log.Info("reconlink.response.recorded", "ref", token.Fingerprint(rec.Link.ReferenceCode), "status", string(status))
	return ResponseResult{
		ReferenceCode: rec.Link.ReferenceCode,
		Status:        status,
		RespondedAt:   now,
	}, s.observe(OpRespond, nil)
}

func (s *Service) validateResponse(in ResponseInput, recordCurrency string) (ResponseStatus, *string, *decimal.Decimal, *string, error) {
	st, ok := ParseResponseStatus(in.Status)
	if !ok {
		return "", nil, nil, nil, ErrInvalidInput
	}

	note := trimPtr(in.Note)
	if note != nil && utf8.RuneCountInString(*note) > s.cfg.MaxNoteLength {
		return "", nil, nil, nil, ErrInvalidInput
	}

	if st == ResponseAgree {
		return st, note, nil, nil, nil
	}

	if note == nil {
		return "", nil, nil, nil, ErrInvalidInput
	}
	if in.DisputedAmount == nil || !in.DisputedAmount.IsPositive() {
		return "", nil, nil, nil, ErrInvalidInput
	}
	amount := in.DisputedAmount.Round(2)
	if !amount.IsPositive() {
		return "", nil, nil, nil, ErrInvalidInput
	}

	currency := trimPtr(in.DisputedCurrency)
	if currency == nil {
		def := strings.TrimSpace(recordCurrency)
		currency = &def
	}
	c := strings.ToUpper(*currency)
	if !isCurrencyCode(c) {
		return "", nil, nil, nil, ErrInvalidInput
	}
	return st, note, &amount, &c, nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
