// Package moderation holds the authoritative ban, mute and role sets.
// Entries are keyed by lower-cased display name and outlive any single
// session; per-session flags are only snapshots of this state.
package moderation

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
)

type Role int

const (
	RoleUser Role = iota
	RoleModerator
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleModerator:
		return "moderator"
	default:
		return "user"
	}
}

// AtLeast reports whether r carries the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "moderator", "mod":
		return RoleModerator, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUser, ErrUnknownRole
	}
}

// State is a pure container: authorization decisions belong to the
// dispatcher, forced disconnects to the caller holding the registry.
type State struct {
	mu     sync.RWMutex
	banned map[string]struct{}
	muted  map[string]struct{}
	roles  map[string]Role

	logger *slog.Logger
}

func NewState(logger *slog.Logger) *State {
	return &State{
		banned: make(map[string]struct{}),
		muted:  make(map[string]struct{}),
		roles:  make(map[string]Role),
		logger: logger.With(slog.String("component", "moderation")),
	}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Ban adds a name to the ban set. It reports false when the name was
// already banned.
func (s *State) Ban(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(name)
	if _, ok := s.banned[k]; ok {
		return false
	}
	s.banned[k] = struct{}{}
	s.logger.Info("name banned", slog.String("name", k))
	return true
}

func (s *State) Unban(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(name)
	if _, ok := s.banned[k]; !ok {
		return false
	}
	delete(s.banned, k)
	s.logger.Info("name unbanned", slog.String("name", k))
	return true
}

func (s *State) IsBanned(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.banned[key(name)]
	return ok
}

func (s *State) Mute(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(name)
	if _, ok := s.muted[k]; ok {
		return false
	}
	s.muted[k] = struct{}{}
	s.logger.Info("name muted", slog.String("name", k))
	return true
}

func (s *State) Unmute(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(name)
	if _, ok := s.muted[k]; !ok {
		return false
	}
	delete(s.muted, k)
	s.logger.Info("name unmuted", slog.String("name", k))
	return true
}

func (s *State) IsMuted(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.muted[key(name)]
	return ok
}

// SetRole assigns a role to a name. It reports false when the name
// already holds that role.
func (s *State) SetRole(name string, role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(name)
	if current, ok := s.roles[k]; ok && current == role {
		return false
	}
	if role == RoleUser {
		delete(s.roles, k)
	} else {
		s.roles[k] = role
	}
	s.logger.Info("role assigned", slog.String("name", k), slog.String("role", role.String()))
	return true
}

// DropRole demotes a name back to plain user. It reports false when the
// name held no elevated role.
func (s *State) DropRole(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(name)
	if _, ok := s.roles[k]; !ok {
		return false
	}
	delete(s.roles, k)
	s.logger.Info("role dropped", slog.String("name", k))
	return true
}

// RoleOf resolves the live role for a name. Roles are keyed by name, so
// a renamed session's effective role follows its current name.
func (s *State) RoleOf(name string) Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if role, ok := s.roles[key(name)]; ok {
		return role
	}
	return RoleUser
}
