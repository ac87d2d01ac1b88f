package publicapi

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/ratelimit"
)

// throttled applies the per-IP limiter before next runs.
func (h *Handler) throttled(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, h.cfg.TrustProxy)
		if ip == nil {
			next(w, r)
			return
		}
		ok, retryAfter, err := h.limiter.Allow(r.Context(), ratelimit.Key("ip", ip.String()), h.now())
		if err != nil {
			h.log.Error("publicapi.throttle_ip.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "server_busy", msgServerBusy)
			return
		}
		if !ok {
			h.observer.ObserveRateLimited("ip")
			writeRateLimited(w, retryAfter)
			return
		}
		next(w, r)
	}
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:            msgRateLimited,
		Code:             "rate_limited",
		RemainingSeconds: &secs,
	})
}
