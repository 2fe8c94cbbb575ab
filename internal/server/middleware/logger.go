package middleware

import (
	"log/slog"
	"net/http"
)

// NewRequestLogger logs each request before it reaches the upgrade or
// admin handlers. It expects RequestMetadataMiddleware to have run first;
// without it the client address is logged empty rather than failing the
// request.
func NewRequestLogger(logger *slog.Logger) Middleware {
	logger = logger.With(slog.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ip string
			if reqMeta, ok := ReqMetadataFrom(r.Context()); ok {
				ip = reqMeta.IP
			}
			logger.Info("request received",
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.String("ip", ip),
			)
			next.ServeHTTP(w, r)
		})
	}
}
