package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// TokenVerifier reports whether a bearer token grants admin access.
type TokenVerifier func(token string) bool

// NewAdminAuth guards the admin surface. Requests without a valid bearer
// token are rejected before reaching any handler.
func NewAdminAuth(logger *slog.Logger, verify TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				logger.Warn("Admin request missing bearer token", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")

			if !verify(token) {
				logger.Warn("Admin request with invalid token", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
