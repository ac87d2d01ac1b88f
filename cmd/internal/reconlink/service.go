package reconlink

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"

	"github.com/oklog/ulid/v2"
)

// Mailer delivers OTP codes to counterparties.
type Mailer interface {
	SendOtpEmail(ctx context.Context, to, recipientName, code string, ttl time.Duration) error
}

// LinkMailer delivers the reconciliation link itself.
type LinkMailer interface {
	SendLinkEmail(ctx context.Context, to, recipientName, companyName, linkURL string, expiresAt time.Time) error
}

// Metrics receives operation outcomes. Implementations must be safe for concurrent use.
type Metrics interface {
	ObserveOperation(op, outcome string)
	ObserveDelivery(kind, result string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, string) {}
func (nopMetrics) ObserveDelivery(string, string)  {}

// Service runs the verification and response-capture protocol over a Store.
type Service struct {
	store    Store
	policies PolicyResolver
	cfg      Config

	log     *slog.Logger
	mailer  Mailer
	links   LinkMailer
	metrics Metrics

	now     func() time.Time
	newCode func() (string, error)
}

// Option configures the Service.
type Option func(*Service) error

// WithConfig overrides protocol settings. Invalid values fall back to defaults.
func WithConfig(cfg Config) Option {
	return func(s *Service) error {
		s.cfg = cfg.normalized()
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) error {
		if log == nil {
			return ErrInvalidInput
		}
		s.log = log
		return nil
	}
}

// WithMailer sets the OTP email collaborator.
func WithMailer(m Mailer) Option {
	return func(s *Service) error {
		if m == nil {
			return ErrInvalidInput
		}
		s.mailer = m
		return nil
	}
}

// WithLinkMailer sets the link email collaborator used by DispatchLink.
func WithLinkMailer(m LinkMailer) Option {
	return func(s *Service) error {
		if m == nil {
			return ErrInvalidInput
		}
		s.links = m
		return nil
	}
}

// WithMetrics sets the outcome observer.
func WithMetrics(m Metrics) Option {
	return func(s *Service) error {
		if m == nil {
			return ErrInvalidInput
		}
		s.metrics = m
		return nil
	}
}

// WithClock replaces time.Now; tests use it to pin the protocol's absolute timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return ErrInvalidInput
		}
		s.now = now
		return nil
	}
}

// WithCodeGenerator replaces the OTP generator.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) error {
		if gen == nil {
			return ErrInvalidInput
		}
		s.newCode = gen
		return nil
	}
}

// NewService constructs a Service with safe defaults.
func NewService(store Store, policies PolicyResolver, opts ...Option) (*Service, error) {
	if store == nil || policies == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{
		store:    store,
		policies: policies,
		cfg:      DefaultConfig(),
		log:      slog.Default(),
		metrics:  nopMetrics{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.newCode == nil {
		digits := s.cfg.OtpDigits
		s.newCode = func() (string, error) { return token.NewNumericCode(digits) }
	}
	return s, nil
}

// Config returns the effective protocol settings.
func (s *Service) Config() Config { return s.cfg }

// load fetches a record and its company's policy. A missing company is reported as
// ErrNotFound so an unresolvable link never degrades to "no verification".
func (s *Service) load(ctx context.Context, ref string) (Record, Policy, error) {
	if s == nil || s.store == nil {
		return Record{}, Policy{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Record{}, Policy{}, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Record{}, Policy{}, ErrNotFound
	}

	rec, err := s.store.GetByReference(ctx, ref)
	if err != nil {
		return Record{}, Policy{}, err
	}
	pol, err := s.policies.ResolvePolicy(ctx, rec.Link.CompanyID)
	if err != nil {
		return Record{}, Policy{}, err
	}
	return rec, pol, nil
}

// observe records the outcome of op and passes err through.
func (s *Service) observe(op Op, err error) error {
	s.metrics.ObserveOperation(string(op), outcomeOf(err))
	return err
}

func outcomeOf(err error) string {
	var locked *LockedError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &locked):
		return "locked"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrAlreadyResponded):
		return "already_responded"
	case errors.Is(err, ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, ErrNotVerified):
		return "not_verified"
	case errors.Is(err, ErrCodeExpired):
		return "code_expired"
	case errors.Is(err, ErrChallengeNotPending):
		return "challenge_not_pending"
	default:
		return "error"
	}
}

// deliverOtp hands a committed code to the mailer. Failures are logged, never returned.
func (s *Service) deliverOtp(ctx context.Context, rec Record, code string) bool {
	ref := token.Fingerprint(rec.Link.ReferenceCode)
	if s.mailer == nil {
		s.log.Warn("reconlink.otp.delivery.skipped", "ref", ref, "reason", "no_mailer")
		s.metrics.ObserveDelivery("otp", "skipped")
		return false
	}
	if err := s.mailer.SendOtpEmail(ctx, rec.Counterparty.Email, rec.Counterparty.Name, code, s.cfg.OtpTTL); err != nil {
		s.log.Error("reconlink.otp.delivery.fail", "ref", ref, "err", errors.Join(ErrDeliveryFailed, err))
		s.metrics.ObserveDelivery("otp", "failed")
		return false
	}
	s.metrics.ObserveDelivery("otp", "sent")
	return true
}

func newULID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func isASCIIDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
