// Package dispatch classifies inbound traffic and executes +commands
// against the session registry, room directory and moderation state.
// Per inbound chat line the check order is fixed: rate limit, then ban,
// then mute, then command-vs-chat classification.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ColdDevYT/Star-Chat/internal/admin"
	"github.com/ColdDevYT/Star-Chat/internal/broadcast"
	"github.com/ColdDevYT/Star-Chat/internal/format"
	"github.com/ColdDevYT/Star-Chat/internal/moderation"
	"github.com/ColdDevYT/Star-Chat/internal/protocol"
	"github.com/ColdDevYT/Star-Chat/internal/room"
	"github.com/ColdDevYT/Star-Chat/internal/session"
)

// Options carries the policy knobs the dispatcher honors.
type Options struct {
	EphemeralDelay time.Duration
	// ClearPolicy is the minimum role for +clear_msg: "any", "moderator" or "admin".
	ClearPolicy string
}

type ephemeralTimer struct {
	room  string
	timer *time.Timer
}

type Dispatcher struct {
	logger    *slog.Logger
	registry  *session.Registry
	rooms     *room.Directory
	mod       *moderation.State
	engine    *broadcast.Engine
	formatter *format.Formatter
	authority *admin.Authority
	logs      *admin.LogSink
	reports   *admin.ReportSink
	opts      Options

	timerMu sync.Mutex
	timers  map[string]ephemeralTimer
}

func New(
	logger *slog.Logger,
	registry *session.Registry,
	rooms *room.Directory,
	mod *moderation.State,
	engine *broadcast.Engine,
	formatter *format.Formatter,
	authority *admin.Authority,
	logs *admin.LogSink,
	reports *admin.ReportSink,
	opts Options,
) *Dispatcher {
	if opts.EphemeralDelay <= 0 {
		opts.EphemeralDelay = 10 * time.Second
	}
	if opts.ClearPolicy == "" {
		opts.ClearPolicy = "moderator"
	}
	return &Dispatcher{
		logger:    logger.With(slog.String("component", "dispatcher")),
		registry:  registry,
		rooms:     rooms,
		mod:       mod,
		engine:    engine,
		formatter: formatter,
		authority: authority,
		logs:      logs,
		reports:   reports,
		opts:      opts,
		timers:    make(map[string]ephemeralTimer),
	}
}

// HandleMessage is the transport's inbound callback. Malformed payloads
// are dropped silently; nothing is echoed back.
func (d *Dispatcher) HandleMessage(ctx context.Context, connID uuid.UUID, raw []byte) {
	in, err := protocol.Decode(raw)
	if err != nil {
		d.logger.Debug("dropped malformed payload", slog.String("connID", connID.String()))
		return
	}

	s, ok := d.registry.Get(connID)
	if !ok {
		// Session already removed; the connection is racing its own close.
		return
	}

	switch {
	case in.Connect != nil:
		d.handleConnect(s, in.Connect)
	case in.AdminAuth != nil:
		d.handleAdminAuth(s, in.AdminAuth)
	case in.Chat != nil:
		d.handleChat(s, in.Chat)
	}
}

// HandleDisconnect detaches a closed connection from the registry and its
// room. Safe to call multiple times and to race in-flight commands.
func (d *Dispatcher) HandleDisconnect(connID uuid.UUID) {
	s, removed := d.registry.Remove(connID)
	if !removed {
		return
	}
	if roomName := s.Room(); roomName != "" {
		remaining := d.rooms.Leave(s.ID, roomName)
		d.engine.ToIDs(remaining, protocol.Encode(protocol.System(roomName, s.Name()+" left the room")))
	}
}

func (d *Dispatcher) handleConnect(s *session.Session, c *protocol.Connect) {
	name, err := d.registry.SetName(s.ID, c.Username, d.formatter)
	switch {
	case errors.Is(err, session.ErrNameBanned):
		d.notify(s, "this name is banned")
		s.Conn.Close(errors.New("banned name on connect"))
		return
	case err != nil:
		d.notify(s, nameErrorText(err))
		return
	}
	if c.Avatar != "" {
		s.SetAvatar(c.Avatar)
	}
	d.notify(s, "welcome, "+name)
}

func (d *Dispatcher) handleAdminAuth(s *session.Session, a *protocol.AdminAuth) {
	// Roles are keyed by name. Promoting the shared default name would
	// hand admin to every future unnamed session, so a name is required
	// before authenticating.
	if strings.EqualFold(s.Name(), session.DefaultName) {
		d.notify(s, "pick a display name before authenticating")
		return
	}
	token, err := d.authority.Authenticate(a.Password)
	if err != nil {
		d.notify(s, "admin authorization failed")
		return
	}
	d.authority.Promote(s.Name(), moderation.RoleAdmin)
	d.engine.One(s, protocol.Encode(protocol.Private("server", "admin access granted; token: "+token)))
}

func (d *Dispatcher) handleChat(s *session.Session, c *protocol.Chat) {
	text := strings.TrimSpace(c.Message)
	if text == "" {
		return
	}

	if !s.Limiter.Allow() {
		d.notify(s, "you are sending messages too quickly; message dropped")
		return
	}

	name := s.Name()
	if d.mod.IsBanned(name) {
		s.Conn.Close(errors.New("banned"))
		return
	}
	if d.mod.IsMuted(name) {
		d.notify(s, "you are muted")
		return
	}

	if strings.HasPrefix(text, "+") {
		d.dispatchCommand(s, text)
		return
	}

	roomName := s.Room()
	if roomName == "" {
		d.notify(s, "join a room first: +join <room>")
		return
	}

	formatted := d.formatter.Format(text)
	avatar := s.Avatar()
	msg, err := d.rooms.Append(roomName, name, formatted, func(m room.Message, members []uuid.UUID) {
		d.engine.ToIDs(members, protocol.Encode(protocol.RoomMessage(roomName, name, avatar, m.Text, itoa64(m.ID))))
	})
	if err != nil {
		d.notify(s, "room no longer exists")
		return
	}
	d.logs.Push(admin.LogEntry{Room: roomName, Sender: name, Text: formatted, Timestamp: msg.CreatedAt})
}

// notify sends a requester-only system notice.
func (d *Dispatcher) notify(s *session.Session, text string) {
	d.engine.One(s, protocol.Encode(protocol.System("", text)))
}

func nameErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrNameTaken):
		return "that name is already in use"
	case errors.Is(err, session.ErrInvalidName):
		return "that name is not allowed"
	case errors.Is(err, session.ErrNameBanned):
		return "this name is banned"
	default:
		return "could not set name"
	}
}
