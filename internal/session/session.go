package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ColdDevYT/Star-Chat/internal/ratelimit"
)

// DefaultName is assigned on connection open, before the client picks a
// display name. The uniqueness rule does not apply to it.
const DefaultName = "Anonymous"

// Conn is the slice of the transport a session needs: identity, best-effort
// delivery and forced closure. *transport.Connection satisfies it.
type Conn interface {
	ID() uuid.UUID
	TrySend(msg []byte) bool
	Close(err error)
}

// Session is one live connection's identity and runtime state. The name,
// room and avatar fields are guarded by the session's own mutex; the
// registry lock only covers the active set and name uniqueness.
type Session struct {
	ID        uuid.UUID
	Conn      Conn
	IP        string
	Limiter   *ratelimit.Window
	CreatedAt time.Time

	mu     sync.RWMutex
	name   string
	room   string
	avatar string
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Session) Room() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

func (s *Session) SetRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = room
}

func (s *Session) Avatar() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avatar
}

func (s *Session) SetAvatar(avatar string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avatar = avatar
}

func (s *Session) setName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}
