package mailer

import (
	"context"
	"log/slog"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"
)

// LogSender writes messages to the log instead of sending them. Used in dev and when
// no provider is configured.
type LogSender struct {
	log         *slog.Logger
	revealCodes bool
}

// NewLogSender constructs a LogSender. Codes are masked unless revealCodes is set.
func NewLogSender(log *slog.Logger, revealCodes bool) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log, revealCodes: revealCodes}
}

// SendOtpEmail implements reconlink.Mailer.
func (s *LogSender) SendOtpEmail(ctx context.Context, to, recipientName, code string, ttl time.Duration) error {
	addr, err := parseAddress(to)
	if err != nil {
		return err
	}
	shown := "******"
	if s.revealCodes {
		shown = code
	}
	s.log.InfoContext(ctx, "mailer.otp",
		"to", token.Fingerprint(addr),
		"code", shown,
		"ttl_minutes", ttlMinutes(ttl),
	)
	return nil
}

// SendLinkEmail implements reconlink.LinkMailer.
func (s *LogSender) SendLinkEmail(ctx context.Context, to, recipientName, companyName, linkURL string, expiresAt time.Time) error {
	addr, err := parseAddress(to)
	if err != nil {
		return err
	}
	shown := token.Fingerprint(linkURL)
	if s.revealCodes {
		shown = linkURL
	}
	s.log.InfoContext(ctx, "mailer.link",
		"to", token.Fingerprint(addr),
		"company", companyName,
		"url", shown,
		"expires_at", formatExpiry(expiresAt),
	)
	return nil
}
