package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	client  sendClient
	from    *sgmail.Email
	sandbox bool
	log     *slog.Logger
}

// NewSendGridSender constructs a sender from cfg.
func NewSendGridSender(cfg Config, log *slog.Logger) *SendGridSender {
	return newSendGridSender(sendgrid.NewSendClient(cfg.SendGridAPIKey), cfg, log)
}

func newSendGridSender(client sendClient, cfg Config, log *slog.Logger) *SendGridSender {
	if log == nil {
		log = slog.Default()
	}
	return &SendGridSender{
		client:  client,
		from:    sgmail.NewEmail(cfg.FromName, cfg.From),
		sandbox: cfg.Sandbox,
		log:     log,
	}
}

// SendOtpEmail implements reconlink.Mailer.
func (s *SendGridSender) SendOtpEmail(ctx context.Context, to, recipientName, code string, ttl time.Duration) error {
	subject, plain, html, err := renderOtp(recipientName, code, ttl)
	if err != nil {
		return err
	}
	return s.send(ctx, "otp", to, recipientName, subject, plain, html)
}

// SendLinkEmail implements reconlink.LinkMailer.
func (s *SendGridSender) SendLinkEmail(ctx context.Context, to, recipientName, companyName, linkURL string, expiresAt time.Time) error {
	subject, plain, html, err := renderLink(recipientName, companyName, linkURL, expiresAt)
	if err != nil {
		return err
	}
	return s.send(ctx, "link", to, recipientName, subject, plain, html)
}

func (s *SendGridSender) send(ctx context.Context, kind, to, name, subject, plain, html string) error {
	addr, err := parseAddress(to)
	if err != nil {
		return err
	}
	msg := sgmail.NewSingleEmail(s.from, subject, sgmail.NewEmail(name, addr), plain, html)
	if s.sandbox {
		ms := sgmail.NewMailSettings()
		ms.SetSandboxMode(sgmail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid %s: %w", kind, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid %s: status %d: %s", kind, resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	s.log.Debug("mailer.sent", "kind", kind, "to", token.Fingerprint(addr), "status", resp.StatusCode, "sandbox", s.sandbox)
	return nil
}

func parseAddress(to string) (string, error) {
	a, err := mail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		return "", ErrInvalidAddress
	}
	return a.Address, nil
}
