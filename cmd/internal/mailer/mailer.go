// Package mailer delivers reconciliation links and one-time codes by email.
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	ErrMissingAPIKey   = errors.New("mailer: MUTABAKAT_SENDGRID_API_KEY is required for the sendgrid provider")
	ErrInvalidFrom     = errors.New("mailer: MUTABAKAT_MAIL_FROM must be an email address")
	ErrUnknownProvider = errors.New("mailer: unknown provider")
	ErrInvalidAddress  = errors.New("mailer: invalid recipient address")
)

// Sender delivers both message kinds used by the link protocol.
type Sender interface {
	SendOtpEmail(ctx context.Context, to, recipientName, code string, ttl time.Duration) error
	SendLinkEmail(ctx context.Context, to, recipientName, companyName, linkURL string, expiresAt time.Time) error
}

// New builds the Sender selected by cfg.
func New(cfg Config, log *slog.Logger) (Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	switch cfg.Provider {
	case ProviderSendGrid:
		return NewSendGridSender(cfg, log), nil
	default:
		return NewLogSender(log, cfg.RevealCodes), nil
	}
}
