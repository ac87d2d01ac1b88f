package publicapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/reconlink"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"
)

// Counterparty-facing messages. Expired and used links point back to the issuing company.
const (
	msgInvalidBody       = "Geçersiz istek."
	msgNotFound          = "Mutabakat bağlantısı bulunamadı."
	msgExpired           = "Bu bağlantının süresi dolmuştur. Lütfen mutabakatı gönderen firma ile iletişime geçin."
	msgAlreadyResponded  = "Bu mutabakat daha önce yanıtlanmıştır. Lütfen mutabakatı gönderen firma ile iletişime geçin."
	msgLocked            = "Çok fazla hatalı deneme. Lütfen bir süre sonra tekrar deneyin."
	msgTaxFailed         = "Vergi numarasının son 4 hanesi hatalı."
	msgOtpFailed         = "Doğrulama kodu hatalı."
	msgCodeExpired       = "Doğrulama kodunun süresi dolmuş. Lütfen yeni kod isteyin."
	msgNotVerified       = "Yanıt vermeden önce doğrulama adımlarını tamamlayın."
	msgChallengeNotReady = "Bu doğrulama adımı şu anda kullanılamaz."
	msgRateLimited       = "Çok fazla istek. Lütfen biraz bekleyin."
	msgServerBusy        = "Lütfen daha sonra tekrar deneyin."
	msgServerError       = "Beklenmeyen bir hata oluştu."
)

// writeLinkError maps reconlink errors to the stable HTTP contract.
func (h *Handler) writeLinkError(w http.ResponseWriter, r *http.Request, op, code string, err error) {
	var (
		locked *reconlink.LockedError
		failed *reconlink.FailedError
	)
	switch {
	case errors.As(err, &locked):
		secs := locked.RemainingSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:            msgLocked,
			Code:             "locked",
			Locked:           true,
			RemainingSeconds: &secs,
		})
	case errors.As(err, &failed):
		left := failed.AttemptsRemaining
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:             msgTaxFailed,
			Code:              "verification_failed",
			AttemptsRemaining: &left,
		})
	case errors.Is(err, reconlink.ErrVerificationFailed):
		writeError(w, http.StatusBadRequest, "verification_failed", msgOtpFailed)
	case errors.Is(err, reconlink.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", msgInvalidBody)
	case errors.Is(err, reconlink.ErrCodeExpired):
		writeError(w, http.StatusBadRequest, "code_expired", msgCodeExpired)
	case errors.Is(err, reconlink.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", msgNotFound)
	case errors.Is(err, reconlink.ErrNotVerified):
		writeError(w, http.StatusForbidden, "not_verified", msgNotVerified)
	case errors.Is(err, reconlink.ErrAlreadyResponded):
		writeError(w, http.StatusConflict, "already_responded", msgAlreadyResponded)
	case errors.Is(err, reconlink.ErrChallengeNotPending):
		writeError(w, http.StatusConflict, "challenge_not_pending", msgChallengeNotReady)
	case errors.Is(err, reconlink.ErrExpired):
		writeError(w, http.StatusGone, "expired", msgExpired)
	default:
		h.log.ErrorContext(r.Context(), "publicapi."+op+".fail", "ref", token.Fingerprint(code), "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", msgServerError)
	}
}
