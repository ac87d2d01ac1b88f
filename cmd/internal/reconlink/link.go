package reconlink

import (
	"strings"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/letter"

	"github.com/shopspring/decimal"
)

// ResponseStatus is the counterparty's final answer.
type ResponseStatus string

const (
	// ResponseAgree confirms the stated balance (mutabık).
	ResponseAgree ResponseStatus = "agree"
	// ResponseDispute asserts a different balance (itiraz).
	ResponseDispute ResponseStatus = "dispute"
)

// ParseResponseStatus accepts exactly the two allowed values (case-insensitive).
func ParseResponseStatus(s string) (ResponseStatus, bool) {
	switch ResponseStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ResponseAgree:
		return ResponseAgree, true
	case ResponseDispute:
		return ResponseDispute, true
	default:
		return "", false
	}
}

// Link mirrors a reconciliation_links row.
type Link struct {
	ID               string
	ReferenceCode    string
	RecordID         string
	ReconciliationID string
	CompanyID        string

	IsVerified bool
	IsUsed     bool
	CreatedAt  time.Time
	ExpiresAt  time.Time

	VerificationAttempts    int
	VerificationLockedUntil *time.Time
	TaxVerifiedAt           *time.Time

	VerificationCode          *string
	VerificationCodeExpiresAt *time.Time

	ResponseStatus   *ResponseStatus
	ResponseNote     *string
	DisputedAmount   *decimal.Decimal
	DisputedCurrency *string
	RespondedAt      *time.Time
}

// Counterparty is the read-only record data joined to a link.
type Counterparty struct {
	Name        string
	Email       string
	TaxNumber   string
	Amount      decimal.Decimal
	Currency    string
	BalanceType letter.Side
}

// Company is the issuing tenant's display data.
type Company struct {
	ID      string
	Name    string
	Address string
	Phone   string
	Email   string
}

// Reconciliation is the run a link belongs to, with its letter template.
type Reconciliation struct {
	ID       string
	Period   string
	Template letter.Template
}

// Record bundles a link with everything joined to it.
// Only Link is ever written back by a store.
type Record struct {
	Link           Link
	Counterparty   Counterparty
	Reconciliation Reconciliation
	Company        Company
}

// RecordRef is the ownership chain and contact data of one counterparty record, used at issuance.
type RecordRef struct {
	RecordID         string
	ReconciliationID string
	CompanyID        string
	RecipientName    string
	RecipientEmail   string
	CompanyName      string
}

// CreateRecord describes a link insert.
type CreateRecord struct {
	ID               string
	ReferenceCode    string
	RecordID         string
	ReconciliationID string
	CompanyID        string
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

func (in CreateRecord) link() Link {
	return Link{
		ID:               in.ID,
		ReferenceCode:    in.ReferenceCode,
		RecordID:         in.RecordID,
		ReconciliationID: in.ReconciliationID,
		CompanyID:        in.CompanyID,
		CreatedAt:        in.CreatedAt,
		ExpiresAt:        in.ExpiresAt,
	}
}
