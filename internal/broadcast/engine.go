// Package broadcast fans payloads out to sessions with best-effort
// semantics: a connection that is closing or has a full buffer is skipped
// silently, never retried or queued.
package broadcast

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/ColdDevYT/Star-Chat/internal/session"
)

type Engine struct {
	registry *session.Registry
	logger   *slog.Logger
}

func NewEngine(registry *session.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		registry: registry,
		logger:   logger.With(slog.String("component", "broadcast")),
	}
}

// ToIDs delivers to the sessions behind the given ids. Ids that have
// disconnected since the snapshot are skipped.
func (e *Engine) ToIDs(ids []uuid.UUID, payload []byte) {
	for _, conn := range e.registry.Conns(ids) {
		if !conn.TrySend(payload) {
			e.logger.Debug("skipped unwritable connection", slog.String("connID", conn.ID().String()))
		}
	}
}

// Global delivers to every active session regardless of room.
func (e *Engine) Global(payload []byte) {
	for _, s := range e.registry.All() {
		if !s.Conn.TrySend(payload) {
			e.logger.Debug("skipped unwritable connection", slog.String("connID", s.ID.String()))
		}
	}
}

// One delivers to a single session, or drops the payload if it is not
// writable.
func (e *Engine) One(s *session.Session, payload []byte) {
	if s == nil {
		return
	}
	if !s.Conn.TrySend(payload) {
		e.logger.Debug("dropped payload for unwritable session", slog.String("sessionID", s.ID.String()))
	}
}
