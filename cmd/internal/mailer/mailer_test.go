package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type fakeClient struct {
	got    *sgmail.SGMailV3
	status int
	err    error
}

func (f *fakeClient) SendWithContext(_ context.Context, m *sgmail.SGMailV3) (*rest.Response, error) {
	f.got = m
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status, Body: "bad request"}, nil
}

func TestSendGridSender_Otp(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{status: 202}
	s := newSendGridSender(fc, Config{From: "no-reply@acme.test", FromName: "Acme", Sandbox: true}, nil)

	if err := s.SendOtpEmail(context.Background(), "Ali <ali@example.com>", "Ali Veli", "123456", 5*time.Minute); err != nil {
		t.Fatalf("send: %v", err)
	}
	if fc.got == nil {
		t.Fatalf("expected a message")
	}
	if fc.got.From.Address != "no-reply@acme.test" || fc.got.Subject != "Mutabakat doğrulama kodu" {
		t.Fatalf("unexpected envelope: from=%v subject=%q", fc.got.From, fc.got.Subject)
	}
	if len(fc.got.Personalizations) != 1 || fc.got.Personalizations[0].To[0].Address != "ali@example.com" {
		t.Fatalf("unexpected recipient: %+v", fc.got.Personalizations)
	}
	if fc.got.MailSettings == nil || fc.got.MailSettings.SandboxMode == nil || !*fc.got.MailSettings.SandboxMode.Enable {
		t.Fatalf("expected sandbox mode")
	}
	var html string
	for _, c := range fc.got.Content {
		if c.Type == "text/html" {
			html = c.Value
		}
	}
	if !strings.Contains(html, "123456") || !strings.Contains(html, "5 dakika") {
		t.Fatalf("unexpected html body: %q", html)
	}
}

func TestSendGridSender_Errors(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{status: 400}
	s := newSendGridSender(fc, Config{From: "no-reply@acme.test"}, nil)
	err := s.SendLinkEmail(context.Background(), "ali@example.com", "Ali", "Acme", "https://x/mutabakat/abc", time.Now())
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("expected status error, got %v", err)
	}

	fc.err = errors.New("dial tcp: refused")
	if err := s.SendOtpEmail(context.Background(), "ali@example.com", "", "123456", time.Minute); err == nil {
		t.Fatalf("expected transport error")
	}

	if err := s.SendOtpEmail(context.Background(), "not-an-address", "", "123456", time.Minute); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestSendGridSender_LinkEscapesHTML(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{status: 202}
	s := newSendGridSender(fc, Config{From: "no-reply@acme.test"}, nil)
	if err := s.SendLinkEmail(context.Background(), "ali@example.com", "<b>Ali</b>", "Acme & Co", "https://x/mutabakat/abc", time.Date(2025, 4, 30, 21, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("send: %v", err)
	}
	html := fc.got.Content[len(fc.got.Content)-1].Value
	if strings.Contains(html, "<b>Ali</b>") {
		t.Fatalf("expected recipient name to be escaped: %q", html)
	}
	if !strings.Contains(html, "01.05.2025 00:00") {
		t.Fatalf("expected Istanbul-local expiry, got %q", html)
	}
}

func TestLogSender_MasksCodesByDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	if err := NewLogSender(log, false).SendOtpEmail(context.Background(), "ali@example.com", "Ali", "654321", time.Minute); err != nil {
		t.Fatalf("send: %v", err)
	}
	if strings.Contains(buf.String(), "654321") || strings.Contains(buf.String(), "ali@example.com") {
		t.Fatalf("expected code and address to be hidden: %s", buf.String())
	}

	buf.Reset()
	if err := NewLogSender(log, true).SendOtpEmail(context.Background(), "ali@example.com", "Ali", "654321", time.Minute); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), "654321") {
		t.Fatalf("expected code to be revealed: %s", buf.String())
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cfg  Config
		want error
	}{
		{Config{Provider: ProviderLog}, nil},
		{Config{Provider: ProviderSendGrid, From: "a@b.c"}, ErrMissingAPIKey},
		{Config{Provider: ProviderSendGrid, SendGridAPIKey: "k", From: "nobody"}, ErrInvalidFrom},
		{Config{Provider: ProviderSendGrid, SendGridAPIKey: "k", From: "a@b.c"}, nil},
		{Config{Provider: "smtp"}, ErrUnknownProvider},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%+v: expected %v, got %v", tc.cfg, tc.want, err)
		}
	}

	if _, err := New(Config{Provider: "smtp"}, nil); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected New to validate, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MUTABAKAT_MAIL_PROVIDER", "SendGrid")
	t.Setenv("MUTABAKAT_SENDGRID_API_KEY", "SG.test")
	t.Setenv("MUTABAKAT_MAIL_SANDBOX", "true")

	cfg := LoadConfigFromEnv()
	if cfg.Provider != ProviderSendGrid || cfg.SendGridAPIKey != "SG.test" || !cfg.Sandbox {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.From == "" || cfg.FromName == "" {
		t.Fatalf("expected defaults for sender identity")
	}
}
