package middleware

import (
	"log/slog"
	"net/http"
)

// IPConnectionCounter reports how many active sessions a source address
// currently holds.
type IPConnectionCounter func(ip string) int

// NewConnectionLimiter rejects upgrade attempts from addresses that
// already hold maxPerIP active sessions. A non-positive limit disables
// the check.
func NewConnectionLimiter(logger *slog.Logger, counter IPConnectionCounter, maxPerIP int) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxPerIP <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				logger.Error("Connection limiter could not find request metadata in context. Check middleware order.")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if count := counter(reqMeta.IP); count >= maxPerIP {
				logger.Warn("Connection limit reached for address", slog.String("ip", reqMeta.IP), slog.Int("count", count))
				http.Error(w, "Too Many Active Connections", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
