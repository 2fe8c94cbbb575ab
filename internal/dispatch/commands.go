package dispatch

import (
	"errors"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ColdDevYT/Star-Chat/internal/admin"
	"github.com/ColdDevYT/Star-Chat/internal/moderation"
	"github.com/ColdDevYT/Star-Chat/internal/protocol"
	"github.com/ColdDevYT/Star-Chat/internal/room"
	"github.com/ColdDevYT/Star-Chat/internal/session"
)

const helpText = `Available commands:
+help - show this list
+nick <name> - change your display name
+join <room> - join (or lazily create) a room
+topic <text> - set the room topic (moderator)
+pin <id> / +unpin <id> - pin or unpin a message (moderator)
+mute <name> / +unmute <name> - mute or unmute a user (moderator)
+ban <name> / +unban <name> - ban or unban a user (admin)
+private_msg @name <text> - send a private message
+clear_msg - clear the room history
+roll [NdM] - roll dice, default 1d6
+ephemeral <text> - send a self-removing message
+report @name <reason> - report a user
+create_room <name> - create a room explicitly (moderator)
+promote <name> <role> / +demote <name> - assign roles (admin)`

var diceRe = regexp.MustCompile(`(?i)^(\d*)d(\d+)$`)

// maxDicePerRoll bounds a single +roll so one command cannot flood a room.
const maxDicePerRoll = 100

// dispatchCommand resolves the requester's live role from moderation
// state on every invocation; cached role snapshots are never trusted.
func (d *Dispatcher) dispatchCommand(s *session.Session, text string) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	role := d.mod.RoleOf(s.Name())

	switch cmd {
	case "+help":
		d.notify(s, helpText)
	case "+nick":
		d.cmdNick(s, args)
	case "+join":
		d.cmdJoin(s, args)
	case "+topic":
		d.cmdTopic(s, role, strings.TrimSpace(strings.TrimPrefix(text, fields[0])))
	case "+pin":
		d.cmdPin(s, role, args, true)
	case "+unpin":
		d.cmdPin(s, role, args, false)
	case "+mute":
		d.cmdMute(s, role, args, true)
	case "+unmute":
		d.cmdMute(s, role, args, false)
	case "+ban":
		d.cmdBan(s, role, args, true)
	case "+unban":
		d.cmdBan(s, role, args, false)
	case "+private_msg":
		d.cmdPrivateMsg(s, args)
	case "+clear_msg":
		d.cmdClear(s, role)
	case "+roll":
		d.cmdRoll(s, args)
	case "+ephemeral":
		d.cmdEphemeral(s, strings.TrimSpace(strings.TrimPrefix(text, fields[0])))
	case "+report":
		d.cmdReport(s, args)
	case "+create_room":
		d.cmdCreateRoom(s, role, args)
	case "+promote":
		d.cmdPromote(s, role, args)
	case "+demote":
		d.cmdDemote(s, role, args)
	default:
		d.notify(s, "unrecognized command: "+cmd)
	}
}

func (d *Dispatcher) cmdNick(s *session.Session, args []string) {
	if len(args) != 1 {
		d.notify(s, "usage: +nick <name>")
		return
	}
	old := s.Name()
	name, err := d.registry.SetName(s.ID, args[0], d.formatter)
	if err != nil {
		d.notify(s, nameErrorText(err))
		return
	}
	if roomName := s.Room(); roomName != "" {
		members, _ := d.rooms.Members(roomName)
		d.engine.ToIDs(members, protocol.Encode(protocol.System(roomName, old+" is now known as "+name)))
	} else {
		d.notify(s, "you are now known as "+name)
	}
}

func (d *Dispatcher) cmdJoin(s *session.Session, args []string) {
	if len(args) != 1 {
		d.notify(s, "usage: +join <room>")
		return
	}
	target := args[0]
	prev := s.Room()
	if prev == target {
		d.notify(s, "you are already in "+target)
		return
	}

	left, joined := d.rooms.Join(s.ID, prev, target)
	s.SetRoom(target)

	if prev != "" {
		d.engine.ToIDs(left, protocol.Encode(protocol.System(prev, s.Name()+" left the room")))
	}
	d.engine.ToIDs(joined, protocol.Encode(protocol.System(target, s.Name()+" joined the room")))
	if topic, err := d.rooms.Topic(target); err == nil && topic != "" {
		d.notify(s, "topic: "+topic)
	}
}

func (d *Dispatcher) cmdTopic(s *session.Session, role moderation.Role, topic string) {
	if !role.AtLeast(moderation.RoleModerator) {
		d.notify(s, "you are not allowed to set the topic")
		return
	}
	roomName := s.Room()
	if roomName == "" {
		d.notify(s, "join a room first")
		return
	}
	if topic == "" {
		d.notify(s, "usage: +topic <text>")
		return
	}
	if err := d.rooms.SetTopic(roomName, topic); err != nil {
		d.notify(s, "room no longer exists")
		return
	}
	members, _ := d.rooms.Members(roomName)
	d.engine.ToIDs(members, protocol.Encode(protocol.System(roomName, "topic set to: "+topic)))
}

func (d *Dispatcher) cmdPin(s *session.Session, role moderation.Role, args []string, pinned bool) {
	verb := "pin"
	if !pinned {
		verb = "unpin"
	}
	if !role.AtLeast(moderation.RoleModerator) {
		d.notify(s, "you are not allowed to "+verb+" messages")
		return
	}
	roomName := s.Room()
	if roomName == "" {
		d.notify(s, "join a room first")
		return
	}
	if len(args) != 1 {
		d.notify(s, "usage: +"+verb+" <id>")
		return
	}
	msgID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		d.notify(s, "message id must be a number")
		return
	}

	changed, err := d.rooms.SetPinned(roomName, msgID, pinned)
	switch {
	case errors.Is(err, room.ErrMessageNotFound), errors.Is(err, room.ErrRoomNotFound):
		d.notify(s, "no message with id "+args[0])
	case !changed:
		d.notify(s, "message "+args[0]+" is already "+verb+"ned")
	default:
		members, _ := d.rooms.Members(roomName)
		d.engine.ToIDs(members, protocol.Encode(protocol.System(roomName, s.Name()+" "+verb+"ned message "+args[0])))
	}
}

func (d *Dispatcher) cmdMute(s *session.Session, role moderation.Role, args []string, mute bool) {
	verb := "mute"
	if !mute {
		verb = "unmute"
	}
	if !role.AtLeast(moderation.RoleModerator) {
		d.notify(s, "you are not allowed to "+verb+" users")
		return
	}
	if len(args) != 1 {
		d.notify(s, "usage: +"+verb+" <name>")
		return
	}
	target := strings.TrimPrefix(args[0], "@")
	if isDefaultName(target) {
		d.notify(s, "cannot "+verb+" the default name")
		return
	}

	var changed bool
	if mute {
		changed = d.mod.Mute(target)
	} else {
		changed = d.mod.Unmute(target)
	}
	if !changed {
		d.notify(s, target+" is already "+verb+"d")
		return
	}
	d.roomOrSelfNotice(s, target+" was "+verb+"d by "+s.Name())
}

func (d *Dispatcher) cmdBan(s *session.Session, role moderation.Role, args []string, ban bool) {
	verb := "ban"
	if !ban {
		verb = "unban"
	}
	if role != moderation.RoleAdmin {
		d.notify(s, "you are not allowed to "+verb+" users")
		return
	}
	if len(args) != 1 {
		d.notify(s, "usage: +"+verb+" <name>")
		return
	}
	target := strings.TrimPrefix(args[0], "@")
	if isDefaultName(target) {
		d.notify(s, "cannot "+verb+" the default name")
		return
	}

	if !ban {
		if !d.mod.Unban(target) {
			d.notify(s, target+" is not banned")
			return
		}
		d.roomOrSelfNotice(s, target+" was unbanned by "+s.Name())
		return
	}

	if !d.mod.Ban(target) {
		d.notify(s, target+" is already banned")
		return
	}
	// The target's connection may already be closing; Close is idempotent.
	if victim, ok := d.registry.FindByName(target); ok {
		victim.Conn.Close(errors.New("banned by " + s.Name()))
	}
	d.engine.Global(protocol.Encode(protocol.System("", target+" was banned")))
}

func (d *Dispatcher) cmdPrivateMsg(s *session.Session, args []string) {
	if len(args) < 2 || !strings.HasPrefix(args[0], "@") {
		d.notify(s, "usage: +private_msg @name <text>")
		return
	}
	targetName := strings.TrimPrefix(args[0], "@")
	target, ok := d.registry.FindByName(targetName)
	if !ok {
		d.notify(s, "user "+targetName+" not found")
		return
	}
	formatted := d.formatter.Format(strings.Join(args[1:], " "))
	d.engine.One(target, protocol.Encode(protocol.Private(s.Name(), formatted)))
	d.notify(s, "private message sent to @"+target.Name())
}

func (d *Dispatcher) cmdClear(s *session.Session, role moderation.Role) {
	var required moderation.Role
	switch d.opts.ClearPolicy {
	case "any":
		required = moderation.RoleUser
	case "admin":
		required = moderation.RoleAdmin
	default:
		required = moderation.RoleModerator
	}
	if !role.AtLeast(required) {
		d.notify(s, "you are not allowed to clear the room history")
		return
	}
	roomName := s.Room()
	if roomName == "" {
		d.notify(s, "join a room first")
		return
	}
	if err := d.rooms.Clear(roomName); err != nil {
		d.notify(s, "room no longer exists")
		return
	}
	d.cancelEphemerals(roomName)

	members, _ := d.rooms.Members(roomName)
	payload := protocol.Encode(protocol.Clear(roomName))
	d.engine.ToIDs(members, payload)
	d.engine.ToIDs(members, protocol.Encode(protocol.System(roomName, "history cleared by "+s.Name())))
}

func (d *Dispatcher) cmdRoll(s *session.Session, args []string) {
	roomName := s.Room()
	if roomName == "" {
		d.notify(s, "join a room first")
		return
	}

	count, faces := 1, 6
	if len(args) > 0 {
		m := diceRe.FindStringSubmatch(args[0])
		if m == nil {
			d.notify(s, "usage: +roll [NdM], e.g. +roll 2d6")
			return
		}
		if m[1] != "" {
			count, _ = strconv.Atoi(m[1])
		}
		faces, _ = strconv.Atoi(m[2])
	}
	if count < 1 || count > maxDicePerRoll || faces < 2 {
		d.notify(s, "roll must use at least 1 die (at most "+strconv.Itoa(maxDicePerRoll)+") with at least 2 faces")
		return
	}

	rolls := make([]string, count)
	sum := 0
	for i := range rolls {
		v := rand.Intn(faces) + 1
		sum += v
		rolls[i] = strconv.Itoa(v)
	}
	result := s.Name() + " rolled " + strconv.Itoa(count) + "d" + strconv.Itoa(faces) +
		": " + strings.Join(rolls, ", ") + " (total " + strconv.Itoa(sum) + ")"

	members, _ := d.rooms.Members(roomName)
	d.engine.ToIDs(members, protocol.Encode(protocol.System(roomName, result)))
}

func (d *Dispatcher) cmdEphemeral(s *session.Session, text string) {
	roomName := s.Room()
	if roomName == "" {
		d.notify(s, "join a room first")
		return
	}
	if text == "" {
		d.notify(s, "usage: +ephemeral <text>")
		return
	}

	id := uuid.NewString()
	formatted := d.formatter.Format(text)
	members, err := d.rooms.Members(roomName)
	if err != nil {
		d.notify(s, "room no longer exists")
		return
	}
	d.engine.ToIDs(members, protocol.Encode(protocol.Ephemeral(roomName, s.Name(), formatted, id)))

	// The removal hint fires regardless of membership churn; it is a
	// display signal, never a history mutation.
	d.timerMu.Lock()
	d.timers[id] = ephemeralTimer{
		room: roomName,
		timer: time.AfterFunc(d.opts.EphemeralDelay, func() {
			d.timerMu.Lock()
			delete(d.timers, id)
			d.timerMu.Unlock()
			current, err := d.rooms.Members(roomName)
			if err != nil {
				return
			}
			d.engine.ToIDs(current, protocol.Encode(protocol.RemoveEphemeral(roomName, id)))
		}),
	}
	d.timerMu.Unlock()
}

func (d *Dispatcher) cancelEphemerals(roomName string) {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	for id, et := range d.timers {
		if et.room == roomName {
			et.timer.Stop()
			delete(d.timers, id)
		}
	}
}

func (d *Dispatcher) cmdReport(s *session.Session, args []string) {
	if len(args) < 2 || !strings.HasPrefix(args[0], "@") {
		d.notify(s, "usage: +report @name <reason>")
		return
	}
	reported := strings.TrimPrefix(args[0], "@")
	d.reports.Add(admin.Report{
		Reporter: s.Name(),
		Reported: reported,
		Reason:   strings.Join(args[1:], " "),
		At:       time.Now(),
	})
	d.notify(s, "report filed against @"+reported)
}

func (d *Dispatcher) cmdCreateRoom(s *session.Session, role moderation.Role, args []string) {
	if !role.AtLeast(moderation.RoleModerator) {
		d.notify(s, "you are not allowed to create rooms")
		return
	}
	if len(args) != 1 {
		d.notify(s, "usage: +create_room <name>")
		return
	}
	if err := d.rooms.Create(args[0]); errors.Is(err, room.ErrRoomExists) {
		d.notify(s, "room "+args[0]+" already exists")
		return
	}
	d.notify(s, "room "+args[0]+" created")
}

func (d *Dispatcher) cmdPromote(s *session.Session, role moderation.Role, args []string) {
	if role != moderation.RoleAdmin {
		d.notify(s, "you are not allowed to assign roles")
		return
	}
	if len(args) != 2 {
		d.notify(s, "usage: +promote <name> <role>")
		return
	}
	target := strings.TrimPrefix(args[0], "@")
	if isDefaultName(target) {
		d.notify(s, "cannot assign a role to the default name")
		return
	}
	newRole, err := moderation.ParseRole(args[1])
	if err != nil {
		d.notify(s, "unknown role: "+args[1])
		return
	}
	if !d.authority.Promote(target, newRole) {
		d.notify(s, target+" already has role "+newRole.String())
		return
	}
	d.notify(s, target+" is now "+newRole.String())
}

func (d *Dispatcher) cmdDemote(s *session.Session, role moderation.Role, args []string) {
	if role != moderation.RoleAdmin {
		d.notify(s, "you are not allowed to assign roles")
		return
	}
	if len(args) != 1 {
		d.notify(s, "usage: +demote <name>")
		return
	}
	target := strings.TrimPrefix(args[0], "@")
	if isDefaultName(target) {
		d.notify(s, "cannot assign a role to the default name")
		return
	}
	if !d.authority.Demote(target) {
		d.notify(s, target+" has no elevated role")
		return
	}
	d.notify(s, target+" is now a regular user")
}

// roomOrSelfNotice broadcasts to the requester's room, or falls back to a
// private notice when the requester is not in one.
func (d *Dispatcher) roomOrSelfNotice(s *session.Session, text string) {
	roomName := s.Room()
	if roomName == "" {
		d.notify(s, text)
		return
	}
	members, _ := d.rooms.Members(roomName)
	d.engine.ToIDs(members, protocol.Encode(protocol.System(roomName, text)))
}

// isDefaultName reports whether a moderation target is the shared default
// name. The default name never holds moderation state: many sessions may
// carry it at once.
func isDefaultName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), session.DefaultName)
}

func itoa64(v int64) string {
	return strconv.FormatInt(v, 10)
}
