package moderation_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/ColdDevYT/Star-Chat/internal/moderation"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func TestBanIdempotent(t *testing.T) {
	s := moderation.NewState(newTestLogger())

	if !s.Ban("Alice") {
		t.Fatal("first ban should report a change")
	}
	if s.Ban("alice") {
		t.Error("second ban of the same name should be a no-op")
	}
	if !s.IsBanned("ALICE") {
		t.Error("ban lookup should be case-insensitive")
	}
	if !s.Unban("alice") {
		t.Error("unban should report a change")
	}
	if s.Unban("alice") {
		t.Error("unban of a non-banned name should be a no-op")
	}
}

func TestMuteIdempotent(t *testing.T) {
	s := moderation.NewState(newTestLogger())

	if !s.Mute("bob") {
		t.Fatal("first mute should report a change")
	}
	if s.Mute("Bob") {
		t.Error("second mute should be a no-op")
	}
	if !s.IsMuted("BOB") {
		t.Error("mute lookup should be case-insensitive")
	}
	s.Unmute("bob")
	if s.IsMuted("bob") {
		t.Error("name still muted after unmute")
	}
}

func TestRolesKeyedByName(t *testing.T) {
	s := moderation.NewState(newTestLogger())

	if s.RoleOf("carol") != moderation.RoleUser {
		t.Fatal("unknown names default to user")
	}
	if !s.SetRole("Carol", moderation.RoleModerator) {
		t.Fatal("role assignment should report a change")
	}
	if s.SetRole("carol", moderation.RoleModerator) {
		t.Error("re-assigning the held role should be a no-op")
	}
	if s.RoleOf("CAROL") != moderation.RoleModerator {
		t.Error("role lookup should be case-insensitive")
	}
	if !s.DropRole("carol") {
		t.Error("dropping an elevated role should report a change")
	}
	if s.DropRole("carol") {
		t.Error("dropping an absent role should be a no-op")
	}
}

func TestRoleOrdering(t *testing.T) {
	if !moderation.RoleAdmin.AtLeast(moderation.RoleModerator) {
		t.Error("admin should satisfy a moderator requirement")
	}
	if moderation.RoleUser.AtLeast(moderation.RoleModerator) {
		t.Error("user should not satisfy a moderator requirement")
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]moderation.Role{
		"admin":     moderation.RoleAdmin,
		"Moderator": moderation.RoleModerator,
		"mod":       moderation.RoleModerator,
		"user":      moderation.RoleUser,
	}
	for in, want := range cases {
		got, err := moderation.ParseRole(in)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := moderation.ParseRole("overlord"); err == nil {
		t.Error("expected error for unknown role")
	}
}
