package publicapi

import (
	"time"

	"github.com/shopspring/decimal"
)

type verifyTaxRequest struct {
	TaxNumberLast4 string `json:"tax_number_last4" validate:"required,len=4,numeric"`
}

type verifyOtpRequest struct {
	OtpCode string `json:"otp_code" validate:"required,len=6,numeric"`
}

type responseRequest struct {
	ResponseStatus   string           `json:"response_status" validate:"required,oneof=agree dispute"`
	ResponseNote     *string          `json:"response_note" validate:"omitempty,max=2000"`
	DisputedAmount   *decimal.Decimal `json:"disputed_amount"`
	DisputedCurrency *string          `json:"disputed_currency" validate:"omitempty,iso4217"`
}

type taxResponse struct {
	Verified  bool   `json:"verified"`
	Email     string `json:"email,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type otpResponse struct {
	Email     string `json:"email"`
	ExpiresIn int    `json:"expiresIn"`
}

type verifyOtpResponse struct {
	Verified bool `json:"verified"`
}

type submitResponse struct {
	Success       bool   `json:"success"`
	ReferenceCode string `json:"reference_code"`
}

type companyResponse struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type counterpartyResponse struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	BalanceType string          `json:"balance_type"`
}

type letterResponse struct {
	Period  string `json:"period"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Notes   string `json:"notes,omitempty"`
}

type viewResponse struct {
	ReferenceCode string    `json:"reference_code"`
	State         string    `json:"state"`
	IsExpired     bool      `json:"is_expired"`
	IsUsed        bool      `json:"is_used"`
	IsVerified    bool      `json:"is_verified"`
	ExpiresAt     time.Time `json:"expires_at"`

	ResponseStatus *string    `json:"response_status"`
	RespondedAt    *time.Time `json:"responded_at"`

	RequireTaxVerification bool `json:"require_tax_verification"`
	RequireOtpVerification bool `json:"require_otp_verification"`

	MaskedEmail       string `json:"masked_email,omitempty"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
	LockedSeconds     int    `json:"locked_seconds,omitempty"`
	OtpExpiresIn      int    `json:"otp_expires_in,omitempty"`

	Company      companyResponse       `json:"company"`
	Counterparty *counterpartyResponse `json:"counterparty,omitempty"`
	Letter       *letterResponse       `json:"letter,omitempty"`
}
