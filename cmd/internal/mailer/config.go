package mailer

import (
	"os"
	"strconv"
	"strings"
)

// Provider selects the delivery backend.
type Provider string

const (
	ProviderSendGrid Provider = "sendgrid"
	ProviderLog      Provider = "log"
)

// Config controls outbound email.
type Config struct {
	Provider Provider

	SendGridAPIKey string
	From           string
	FromName       string

	// Sandbox asks SendGrid to validate without delivering.
	Sandbox bool

	// RevealCodes makes the log provider print OTP codes. Dev only.
	RevealCodes bool
}

// LoadConfigFromEnv reads MUTABAKAT_MAIL_* settings.
//
// Env vars:
// - MUTABAKAT_MAIL_PROVIDER (sendgrid|log; default log)
// - MUTABAKAT_SENDGRID_API_KEY
// - MUTABAKAT_MAIL_FROM (default no-reply@iletigo.local)
// - MUTABAKAT_MAIL_FROM_NAME (default İletigo Mutabakat)
// - MUTABAKAT_MAIL_SANDBOX (default false)
// - MUTABAKAT_MAIL_REVEAL_CODES (default false)
func LoadConfigFromEnv() Config {
	return Config{
		Provider:       Provider(strings.ToLower(envString("MUTABAKAT_MAIL_PROVIDER", string(ProviderLog)))),
		SendGridAPIKey: envString("MUTABAKAT_SENDGRID_API_KEY", ""),
		From:           envString("MUTABAKAT_MAIL_FROM", "no-reply@iletigo.local"),
		FromName:       envString("MUTABAKAT_MAIL_FROM_NAME", "İletigo Mutabakat"),
		Sandbox:        envBool("MUTABAKAT_MAIL_SANDBOX", false),
		RevealCodes:    envBool("MUTABAKAT_MAIL_REVEAL_CODES", false),
	}
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderLog:
		return nil
	case ProviderSendGrid:
		if strings.TrimSpace(c.SendGridAPIKey) == "" {
			return ErrMissingAPIKey
		}
		if !strings.Contains(c.From, "@") {
			return ErrInvalidFrom
		}
		return nil
	default:
		return ErrUnknownProvider
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
