// Package publicapi serves the counterparty-facing link endpoints.
package publicapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/ratelimit"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/reconlink"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"

	"github.com/go-playground/validator/v10"
)

// RateObserver is told about refused requests.
type RateObserver interface {
	ObserveRateLimited(reason string)
}

type nopRateObserver struct{}

func (nopRateObserver) ObserveRateLimited(string) {}

// Handler wires HTTP link endpoints to the reconlink service.
type Handler struct {
	log *slog.Logger
	cfg Config

	links *reconlink.Service

	limiter  ratelimit.Limiter
	cooldown ratelimit.Cooldown
	observer RateObserver

	validate *validator.Validate
	now      func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithLimiter overrides the default in-memory per-IP limiter.
func WithLimiter(l ratelimit.Limiter) HandlerOption {
	return func(h *Handler) {
		if h == nil || l == nil {
			return
		}
		h.limiter = l
	}
}

// WithCooldown overrides the default in-memory OTP resend cooldown.
func WithCooldown(c ratelimit.Cooldown) HandlerOption {
	return func(h *Handler) {
		if h == nil || c == nil {
			return
		}
		h.cooldown = c
	}
}

// WithRateObserver reports refused requests, usually to metrics.
func WithRateObserver(o RateObserver) HandlerOption {
	return func(h *Handler) {
		if h == nil || o == nil {
			return
		}
		h.observer = o
	}
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, links *reconlink.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if links == nil {
		return nil, errors.New("publicapi: nil link service")
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.normalized()

	h := &Handler{
		log:      log,
		cfg:      cfg,
		links:    links,
		limiter:  ratelimit.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow),
		cooldown: ratelimit.NewMemoryCooldown(),
		observer: nopRateObserver{},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires link routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("GET /api/links/{code}", h.handleView)
	mux.HandleFunc("POST /api/links/{code}/verify-tax", h.throttled(h.handleVerifyTax))
	mux.HandleFunc("POST /api/links/{code}/otp", h.throttled(h.handleIssueOtp))
	mux.HandleFunc("POST /api/links/{code}/verify-otp", h.throttled(h.handleVerifyOtp))
	mux.HandleFunc("POST /api/links/{code}/response", h.throttled(h.handleResponse))
}

// ---- handlers ----

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)
	v, err := h.links.GetPublicView(r.Context(), code)
	if err != nil {
		h.writeLinkError(w, r, "view", code, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewResponse(v))
}

func (h *Handler) handleVerifyTax(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)

	var req verifyTaxRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.links.VerifyTax(r.Context(), code, strings.TrimSpace(req.TaxNumberLast4))
	if err != nil {
		h.writeLinkError(w, r, "verify_tax", code, err)
		return
	}
	out := taxResponse{Verified: res.Verified}
	if res.NeedsOTP {
		out.Email = res.MaskedEmail
		out.ExpiresIn = int(res.OTPTTL.Seconds())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleIssueOtp(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)
	ctx := r.Context()
	cooldownKey := ratelimit.Key("otp", token.Fingerprint(code))

	if h.cfg.OtpResendCooldown > 0 {
		ok, remaining, err := h.cooldown.Acquire(ctx, cooldownKey, h.cfg.OtpResendCooldown)
		if err != nil {
			h.log.Error("publicapi.otp.cooldown.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "server_busy", msgServerBusy)
			return
		}
		if !ok {
			h.observer.ObserveRateLimited("otp_cooldown")
			writeRateLimited(w, remaining)
			return
		}
	}

	iss, err := h.links.IssueOtp(ctx, code)
	if err != nil {
		// No code was issued, so the next request must not wait out the cooldown.
		if h.cfg.OtpResendCooldown > 0 {
			if rerr := h.cooldown.Release(context.WithoutCancel(ctx), cooldownKey); rerr != nil {
				h.log.Warn("publicapi.otp.cooldown.release.fail", "err", rerr)
			}
		}
		h.writeLinkError(w, r, "issue_otp", code, err)
		return
	}
	writeJSON(w, http.StatusOK, otpResponse{Email: iss.MaskedEmail, ExpiresIn: int(iss.TTL.Seconds())})
}

func (h *Handler) handleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)

	var req verifyOtpRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.links.VerifyOtp(r.Context(), code, req.OtpCode); err != nil {
		h.writeLinkError(w, r, "verify_otp", code, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyOtpResponse{Verified: true})
}

func (h *Handler) handleResponse(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)

	var req responseRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", msgInvalidBody)
		return
	}
	req.ResponseStatus = strings.ToLower(strings.TrimSpace(req.ResponseStatus))
	if req.DisputedCurrency != nil {
		c := strings.ToUpper(strings.TrimSpace(*req.DisputedCurrency))
		if c == "" {
			req.DisputedCurrency = nil
		} else {
			req.DisputedCurrency = &c
		}
	}
	if req.ResponseStatus != string(reconlink.ResponseDispute) {
		// Agree ignores dispute fields entirely, including malformed ones.
		req.DisputedAmount = nil
		req.DisputedCurrency = nil
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", msgInvalidBody)
		return
	}

	res, err := h.links.SubmitResponse(r.Context(), code, reconlink.ResponseInput{
		Status:           req.ResponseStatus,
		Note:             req.ResponseNote,
		DisputedAmount:   req.DisputedAmount,
		DisputedCurrency: req.DisputedCurrency,
	})
	if err != nil {
		h.writeLinkError(w, r, "response", code, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Success: true, ReferenceCode: res.ReferenceCode})
}

// ---- helpers ----

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", msgInvalidBody)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", msgInvalidBody)
		return false
	}
	return true
}

func pathCode(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("code"))
}

func toViewResponse(v reconlink.View) viewResponse {
	out := viewResponse{
		ReferenceCode:          v.ReferenceCode,
		State:                  string(v.State),
		IsExpired:              v.IsExpired,
		IsUsed:                 v.IsUsed,
		IsVerified:             v.IsVerified,
		ExpiresAt:              v.ExpiresAt,
		RespondedAt:            v.RespondedAt,
		RequireTaxVerification: v.Policy.RequireTax,
		RequireOtpVerification: v.Policy.RequireOTP,
		MaskedEmail:            v.MaskedEmail,
		LockedSeconds:          v.LockedSeconds,
		OtpExpiresIn:           v.OtpExpiresIn,
		Company: companyResponse{
			Name:    v.Company.Name,
			Address: v.Company.Address,
			Phone:   v.Company.Phone,
			Email:   v.Company.Email,
		},
	}
	if v.ResponseStatus != nil {
		s := string(*v.ResponseStatus)
		out.ResponseStatus = &s
	}
	if v.State == reconlink.StateTaxPending {
		n := v.AttemptsRemaining
		out.AttemptsRemaining = &n
	}
	if v.Counterparty != nil {
		out.Counterparty = &counterpartyResponse{
			Name:        v.Counterparty.Name,
			Amount:      v.Counterparty.Amount,
			Currency:    v.Counterparty.Currency,
			BalanceType: string(v.Counterparty.BalanceType),
		}
	}
	if v.Letter != nil {
		out.Letter = &letterResponse{
			Period:  v.Period,
			Subject: v.Letter.Subject,
			Body:    v.Letter.Body,
			Notes:   v.Letter.Notes,
		}
	}
	return out
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
