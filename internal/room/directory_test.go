package room_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/ColdDevYT/Star-Chat/internal/room"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func newTestDirectory(limit int) *room.Directory {
	return room.NewDirectory(limit, newTestLogger())
}

func TestMessageIDsStrictlyIncreasing(t *testing.T) {
	d := newTestDirectory(3)
	d.Join(uuid.New(), "", "general")

	var last int64
	for i := 0; i < 10; i++ {
		msg, err := d.Append("general", "alice", "hello", nil)
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if msg.ID <= last {
			t.Fatalf("id %d not strictly greater than %d", msg.ID, last)
		}
		last = msg.ID
	}

	// Ids keep increasing after eviction has discarded early entries.
	history, _ := d.History("general")
	if len(history) != 3 {
		t.Fatalf("expected history bounded to 3, got %d", len(history))
	}
	if history[0].ID >= history[1].ID || history[1].ID >= history[2].ID {
		t.Error("surviving history ids are not strictly increasing")
	}
}

func TestEvictionIsOldestFirstIgnoringPins(t *testing.T) {
	d := newTestDirectory(2)
	d.Join(uuid.New(), "", "general")

	first, _ := d.Append("general", "alice", "one", nil)
	d.Append("general", "alice", "two", nil)

	if _, err := d.SetPinned("general", first.ID, true); err != nil {
		t.Fatalf("pin failed: %v", err)
	}

	// A third message evicts the pinned first message regardless.
	d.Append("general", "alice", "three", nil)
	history, _ := d.History("general")
	for _, m := range history {
		if m.ID == first.ID {
			t.Error("pinned message survived eviction; eviction must be strictly FIFO")
		}
	}

	// The evicted id is permanently gone.
	if _, err := d.SetPinned("general", first.ID, false); !errors.Is(err, room.ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound for evicted id, got %v", err)
	}
}

func TestPinUnknownID(t *testing.T) {
	d := newTestDirectory(10)
	d.Join(uuid.New(), "", "general")
	d.Append("general", "alice", "hello", nil)

	if _, err := d.SetPinned("general", 9001, true); !errors.Is(err, room.ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestPinIdempotent(t *testing.T) {
	d := newTestDirectory(10)
	d.Join(uuid.New(), "", "general")
	msg, _ := d.Append("general", "alice", "hello", nil)

	changed, err := d.SetPinned("general", msg.ID, true)
	if err != nil || !changed {
		t.Fatalf("first pin: changed=%v err=%v", changed, err)
	}
	changed, err = d.SetPinned("general", msg.ID, true)
	if err != nil || changed {
		t.Errorf("second pin should be a no-op: changed=%v err=%v", changed, err)
	}
}

func TestJoinMovesBetweenRooms(t *testing.T) {
	d := newTestDirectory(10)
	alice := uuid.New()
	bob := uuid.New()

	d.Join(alice, "", "red")
	d.Join(bob, "", "red")

	left, joined := d.Join(alice, "red", "blue")
	if len(left) != 1 || left[0] != bob {
		t.Errorf("departure snapshot should hold remaining members, got %v", left)
	}
	if len(joined) != 1 || joined[0] != alice {
		t.Errorf("arrival snapshot should hold the new membership, got %v", joined)
	}

	redMembers, _ := d.Members("red")
	if len(redMembers) != 1 {
		t.Errorf("expected 1 member left in red, got %d", len(redMembers))
	}
}

func TestLeaveKeepsRoomAlive(t *testing.T) {
	d := newTestDirectory(10)
	alice := uuid.New()
	d.Join(alice, "", "red")
	d.SetTopic("red", "welcome")
	d.Leave(alice, "red")

	// Rooms are never auto-deleted; topic and history survive.
	topic, err := d.Topic("red")
	if err != nil || topic != "welcome" {
		t.Errorf("room state lost after last member left: %q, %v", topic, err)
	}
}

func TestClearTruncatesHistoryOnly(t *testing.T) {
	d := newTestDirectory(10)
	alice := uuid.New()
	d.Join(alice, "", "red")
	d.SetTopic("red", "welcome")
	d.Append("red", "alice", "hello", nil)

	if err := d.Clear("red"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	history, _ := d.History("red")
	if len(history) != 0 {
		t.Error("history not truncated")
	}
	if topic, _ := d.Topic("red"); topic != "welcome" {
		t.Error("clear must not touch the topic")
	}
	members, _ := d.Members("red")
	if len(members) != 1 {
		t.Error("clear must not touch membership")
	}

	// Ids continue from where they left off, never reused.
	before, _ := d.Append("red", "alice", "again", nil)
	d.Clear("red")
	after, _ := d.Append("red", "alice", "and again", nil)
	if after.ID <= before.ID {
		t.Error("message ids reused after clear")
	}
}

func TestCreateExplicit(t *testing.T) {
	d := newTestDirectory(10)
	if err := d.Create("ops"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := d.Create("ops"); !errors.Is(err, room.ErrRoomExists) {
		t.Errorf("expected ErrRoomExists, got %v", err)
	}
	if !d.Exists("ops") {
		t.Error("created room not reported by Exists")
	}
	if d.Exists("ghost") {
		t.Error("Exists reported a room that was never created")
	}
}

func TestDeliverRunsWithMembers(t *testing.T) {
	d := newTestDirectory(10)
	alice := uuid.New()
	bob := uuid.New()
	d.Join(alice, "", "red")
	d.Join(bob, "", "red")

	var got []uuid.UUID
	_, err := d.Append("red", "alice", "hi", func(m room.Message, members []uuid.UUID) {
		got = members
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("deliver saw %d members, want 2", len(got))
	}
}

func TestAppendToUnknownRoom(t *testing.T) {
	d := newTestDirectory(10)
	if _, err := d.Append("ghost", "alice", "hi", nil); !errors.Is(err, room.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}
