// Package session tracks every live connection and enforces display-name
// rules among the currently connected set. Names are never reserved
// globally; a disconnected name is immediately reusable.
package session

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ColdDevYT/Star-Chat/internal/format"
	"github.com/ColdDevYT/Star-Chat/internal/ratelimit"
)

var (
	ErrInvalidName = errors.New("display name is empty or fully censored")
	ErrNameTaken   = errors.New("display name already in use")
	ErrNameBanned  = errors.New("display name is banned")
)

// BanChecker answers whether a name is currently banned. The registry
// consults it on every rename so ban state is always re-validated.
type BanChecker func(name string) bool

type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	isBanned BanChecker
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger, isBanned BanChecker) *Registry {
	if isBanned == nil {
		isBanned = func(string) bool { return false }
	}
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		isBanned: isBanned,
		logger:   logger.With(slog.String("component", "session_registry")),
	}
}

// Register adds a connection to the active set with default identity.
func (r *Registry) Register(conn Conn, limiter *ratelimit.Window, ip string) *Session {
	s := &Session{
		ID:        conn.ID(),
		Conn:      conn,
		IP:        ip,
		Limiter:   limiter,
		CreatedAt: time.Now(),
		name:      DefaultName,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.logger.Debug("session registered", slog.String("sessionID", s.ID.String()))
	return s
}

// SetName validates and applies a proposed display name. The proposal is
// cleaned (sanitized and censored) before any rule is checked, so a name
// that collapses to the censor token fails as invalid rather than
// slipping through as markup.
func (r *Registry) SetName(id uuid.UUID, proposed string, f *format.Formatter) (string, error) {
	clean := f.CleanName(proposed)
	if clean == "" || clean == format.CensorToken {
		return "", ErrInvalidName
	}
	if r.isBanned(clean) {
		return "", ErrNameBanned
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return "", errors.New("session not found")
	}
	// The default name is exempt from uniqueness: every fresh session
	// holds it, so it can never be reserved by anyone.
	lower := strings.ToLower(clean)
	if lower != strings.ToLower(DefaultName) {
		for otherID, other := range r.sessions {
			if otherID != id && strings.ToLower(other.Name()) == lower {
				return "", ErrNameTaken
			}
		}
	}
	s.setName(clean)
	r.logger.Debug("session renamed", slog.String("sessionID", id.String()), slog.String("name", clean))
	return clean, nil
}

// FindByName resolves a display name case-insensitively among active
// sessions.
func (r *Registry) FindByName(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, s := range r.sessions {
		if strings.ToLower(s.Name()) == lower {
			return s, true
		}
	}
	return nil, false
}

func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove detaches a session from the active set. It is an idempotent
// no-op on repeat calls; the second return reports whether anything was
// removed, so a command racing a disconnect fails gracefully.
func (r *Registry) Remove(id uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	r.logger.Debug("session removed", slog.String("sessionID", id.String()))
	return s, true
}

// All snapshots the active set.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// CountByIP reports how many active sessions share a source address.
func (r *Registry) CountByIP(ip string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.IP == ip {
			n++
		}
	}
	return n
}

// Conns resolves opaque session ids to their connections, skipping ids
// that have since disconnected.
func (r *Registry) Conns(ids []uuid.UUID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			out = append(out, s.Conn)
		}
	}
	return out
}
