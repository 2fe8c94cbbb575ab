// Package room implements the named-room directory: membership, topics and
// each room's bounded message history. Membership is a set of opaque
// session ids resolved through the session registry, never direct
// references, so a disconnecting session can always be unlinked safely.
package room

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrMessageNotFound = errors.New("message not found in room history")
)

// Message is owned by exactly one room. Ids are assigned from one
// per-process counter and are never reused, even after eviction.
type Message struct {
	ID        int64
	Sender    string
	Text      string
	Pinned    bool
	CreatedAt time.Time
}

type Room struct {
	Name    string
	Topic   string
	Members map[uuid.UUID]struct{}
	History []Message
}

// Deliver is invoked while the directory lock is held, so message ids are
// observed by every subscriber in assignment order. It must not block;
// the broadcast engine satisfies this with non-blocking sends.
type Deliver func(msg Message, members []uuid.UUID)

type Directory struct {
	mu           sync.Mutex
	rooms        map[string]*Room
	nextID       int64
	historyLimit int

	logger *slog.Logger
}

func NewDirectory(historyLimit int, logger *slog.Logger) *Directory {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &Directory{
		rooms:        make(map[string]*Room),
		historyLimit: historyLimit,
		logger:       logger.With(slog.String("component", "room_directory")),
	}
}

func (d *Directory) getOrCreateLocked(name string) *Room {
	r, ok := d.rooms[name]
	if !ok {
		r = &Room{Name: name, Members: make(map[uuid.UUID]struct{})}
		d.rooms[name] = r
		d.logger.Info("room created", slog.String("room", name))
	}
	return r
}

// Create makes a room explicitly. It returns ErrRoomExists when the name
// is already taken; callers report that as an informational no-op.
func (d *Directory) Create(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[name]; ok {
		return ErrRoomExists
	}
	d.getOrCreateLocked(name)
	return nil
}

func (d *Directory) Exists(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.rooms[name]
	return ok
}

// Join moves a session into a room, creating the room lazily. The session
// leaves its previous room first; the returned members snapshots let the
// caller broadcast departure and arrival notices to the right audiences.
func (d *Directory) Join(id uuid.UUID, from, to string) (left []uuid.UUID, joined []uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if from != "" && from != to {
		if prev, ok := d.rooms[from]; ok {
			delete(prev.Members, id)
			left = memberIDs(prev)
		}
	}
	r := d.getOrCreateLocked(to)
	r.Members[id] = struct{}{}
	joined = memberIDs(r)
	return left, joined
}

// Leave detaches a session from a room. Missing rooms and non-members are
// no-ops so disconnect cleanup can never fail. Rooms are never deleted on
// emptiness; their topic and history survive until process exit.
func (d *Directory) Leave(id uuid.UUID, name string) []uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	if !ok {
		return nil
	}
	delete(r.Members, id)
	return memberIDs(r)
}

func (d *Directory) Members(name string) ([]uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return memberIDs(r), nil
}

func (d *Directory) Topic(name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	if !ok {
		return "", ErrRoomNotFound
	}
	return r.Topic, nil
}

func (d *Directory) SetTopic(name, topic string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	r.Topic = topic
	return nil
}

// Append assigns the next message id, appends to the room's history and
// evicts oldest-first past the bound. Pinned messages are not exempt from
// eviction. When deliver is non-nil it runs under the directory lock.
func (d *Directory) Append(name, sender, text string, deliver Deliver) (Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[name]
	if !ok {
		return Message{}, ErrRoomNotFound
	}

	d.nextID++
	msg := Message{ID: d.nextID, Sender: sender, Text: text, CreatedAt: time.Now()}
	r.History = append(r.History, msg)
	if len(r.History) > d.historyLimit {
		r.History = r.History[len(r.History)-d.historyLimit:]
	}

	if deliver != nil {
		deliver(msg, memberIDs(r))
	}
	return msg, nil
}

// SetPinned toggles the pin flag on a message still present in the room's
// history. Evicted ids are permanently gone and report ErrMessageNotFound.
func (d *Directory) SetPinned(name string, msgID int64, pinned bool) (changed bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[name]
	if !ok {
		return false, ErrRoomNotFound
	}
	for i := range r.History {
		if r.History[i].ID == msgID {
			if r.History[i].Pinned == pinned {
				return false, nil
			}
			r.History[i].Pinned = pinned
			return true, nil
		}
	}
	return false, ErrMessageNotFound
}

// Clear truncates the room's entire history. Topic and membership are
// untouched.
func (d *Directory) Clear(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	r.History = nil
	d.logger.Info("room history cleared", slog.String("room", name))
	return nil
}

// History copies a room's current history, oldest first.
func (d *Directory) History(name string) ([]Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := make([]Message, len(r.History))
	copy(out, r.History)
	return out, nil
}

func memberIDs(r *Room) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Members))
	for id := range r.Members {
		ids = append(ids, id)
	}
	return ids
}
