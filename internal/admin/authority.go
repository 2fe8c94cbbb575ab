// Package admin is the narrow collaborator surface the core exposes to the
// external admin panel: a promote/demote authority gated by a shared
// secret, a bounded chat-log sink and an append-only report sink.
package admin

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ColdDevYT/Star-Chat/internal/moderation"
)

var ErrUnauthorized = errors.New("admin authorization failed")

// Authority validates admin credentials and applies role changes. A
// successful secret check mints a short-lived HMAC token; the dispatcher
// trusts Verify verbatim.
type Authority struct {
	secret []byte
	ttl    time.Duration
	mod    *moderation.State
	logger *slog.Logger
}

func NewAuthority(secret string, ttl time.Duration, mod *moderation.State, logger *slog.Logger) *Authority {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authority{
		secret: []byte(secret),
		ttl:    ttl,
		mod:    mod,
		logger: logger.With(slog.String("component", "admin_authority")),
	}
}

// Authenticate checks the shared secret and mints a session token on
// success.
func (a *Authority) Authenticate(password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(password), a.secret) != 1 {
		return "", ErrUnauthorized
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", err
	}
	a.logger.Info("admin authenticated")
	return signed, nil
}

// Verify reports whether a previously minted token is still valid.
func (a *Authority) Verify(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	return err == nil && token.Valid
}

// Promote assigns a role by name. It reports false when the name already
// held the role.
func (a *Authority) Promote(name string, role moderation.Role) bool {
	return a.mod.SetRole(name, role)
}

// Demote strips any elevated role from a name.
func (a *Authority) Demote(name string) bool {
	return a.mod.DropRole(name)
}
