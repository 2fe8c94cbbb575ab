package session_test

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ColdDevYT/Star-Chat/internal/format"
	"github.com/ColdDevYT/Star-Chat/internal/ratelimit"
	"github.com/ColdDevYT/Star-Chat/internal/session"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// fakeConn satisfies session.Conn without a real websocket.
type fakeConn struct {
	id     uuid.UUID
	closed bool
}

func newFakeConn() *fakeConn { return &fakeConn{id: uuid.New()} }

func (c *fakeConn) ID() uuid.UUID { return c.id }

func (c *fakeConn) TrySend(m []byte) bool { return !c.closed }

func (c *fakeConn) Close(err error) { c.closed = true }

func newTestRegistry(banned ...string) *session.Registry {
	return session.NewRegistry(newTestLogger(), func(name string) bool {
		for _, b := range banned {
			if strings.EqualFold(b, name) {
				return true
			}
		}
		return false
	})
}

func testFormatter() *format.Formatter {
	return format.New([]string{"rude"}, nil)
}

func register(r *session.Registry, conn session.Conn) *session.Session {
	return r.Register(conn, ratelimit.NewWindow(5, 10*time.Second), "127.0.0.1")
}

func TestRegisterDefaults(t *testing.T) {
	r := newTestRegistry()
	s := register(r, newFakeConn())

	if s.Name() != session.DefaultName {
		t.Errorf("expected default name %q, got %q", session.DefaultName, s.Name())
	}
	if s.Room() != "" {
		t.Errorf("new session should not be in a room, got %q", s.Room())
	}
}

func TestSetNameRules(t *testing.T) {
	r := newTestRegistry("mallory")
	f := testFormatter()

	a := register(r, newFakeConn())
	b := register(r, newFakeConn())

	if _, err := r.SetName(a.ID, "Alice", f); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}

	// Case-insensitive collision with an active session.
	if _, err := r.SetName(b.ID, "ALICE", f); !errors.Is(err, session.ErrNameTaken) {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}

	// A name that censors down to the token alone is invalid.
	if _, err := r.SetName(b.ID, "rude", f); !errors.Is(err, session.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
	if _, err := r.SetName(b.ID, "   ", f); !errors.Is(err, session.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName for blank name, got %v", err)
	}

	// Banned names are rejected on rename.
	if _, err := r.SetName(b.ID, "Mallory", f); !errors.Is(err, session.ErrNameBanned) {
		t.Errorf("expected ErrNameBanned, got %v", err)
	}

	// Renaming to your own current name is not a collision.
	if _, err := r.SetName(a.ID, "alice", f); err != nil {
		t.Errorf("self-rename should succeed, got %v", err)
	}
}

func TestDefaultNameExemptFromUniqueness(t *testing.T) {
	r := newTestRegistry()
	f := testFormatter()

	// b still holds the default name a fresh session starts with.
	a := register(r, newFakeConn())
	register(r, newFakeConn())

	if _, err := r.SetName(a.ID, session.DefaultName, f); err != nil {
		t.Errorf("renaming to the default name should always succeed, got %v", err)
	}
	if _, err := r.SetName(a.ID, "anonymous", f); err != nil {
		t.Errorf("default-name exemption should be case-insensitive, got %v", err)
	}
}

func TestNameFreedOnRemove(t *testing.T) {
	r := newTestRegistry()
	f := testFormatter()

	a := register(r, newFakeConn())
	b := register(r, newFakeConn())
	if _, err := r.SetName(a.ID, "Alice", f); err != nil {
		t.Fatal(err)
	}

	r.Remove(a.ID)
	if _, err := r.SetName(b.ID, "alice", f); err != nil {
		t.Errorf("name should be reusable after disconnect, got %v", err)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	r := newTestRegistry()
	s := register(r, newFakeConn())

	if _, removed := r.Remove(s.ID); !removed {
		t.Fatal("first remove should report removal")
	}
	if _, removed := r.Remove(s.ID); removed {
		t.Error("second remove should be a no-op")
	}
	if _, ok := r.Get(s.ID); ok {
		t.Error("session still resolvable after removal")
	}
}

func TestFindByNameCaseInsensitive(t *testing.T) {
	r := newTestRegistry()
	f := testFormatter()
	s := register(r, newFakeConn())
	if _, err := r.SetName(s.ID, "Dave", f); err != nil {
		t.Fatal(err)
	}

	if got, ok := r.FindByName("dAvE"); !ok || got.ID != s.ID {
		t.Error("case-insensitive lookup failed")
	}
	if _, ok := r.FindByName("ghost"); ok {
		t.Error("lookup of unknown name should fail")
	}
}

func TestConnsSkipsRemoved(t *testing.T) {
	r := newTestRegistry()
	a := register(r, newFakeConn())
	b := register(r, newFakeConn())
	r.Remove(b.ID)

	conns := r.Conns([]uuid.UUID{a.ID, b.ID})
	if len(conns) != 1 {
		t.Errorf("expected 1 live connection, got %d", len(conns))
	}
}

func TestCountByIP(t *testing.T) {
	r := newTestRegistry()
	r.Register(newFakeConn(), ratelimit.NewWindow(5, time.Second), "10.0.0.1")
	r.Register(newFakeConn(), ratelimit.NewWindow(5, time.Second), "10.0.0.1")
	r.Register(newFakeConn(), ratelimit.NewWindow(5, time.Second), "10.0.0.2")

	if got := r.CountByIP("10.0.0.1"); got != 2 {
		t.Errorf("expected 2 sessions for 10.0.0.1, got %d", got)
	}
	if got := r.CountByIP("10.0.0.3"); got != 0 {
		t.Errorf("expected 0 sessions for unknown address, got %d", got)
	}
}
