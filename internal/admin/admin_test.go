package admin_test

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ColdDevYT/Star-Chat/internal/admin"
	"github.com/ColdDevYT/Star-Chat/internal/moderation"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func newTestAuthority() *admin.Authority {
	mod := moderation.NewState(newTestLogger())
	return admin.NewAuthority("s3cret", time.Hour, mod, newTestLogger())
}

func TestAuthenticate(t *testing.T) {
	a := newTestAuthority()

	if _, err := a.Authenticate("wrong"); err == nil {
		t.Error("wrong secret should be rejected")
	}

	token, err := a.Authenticate("s3cret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if !a.Verify(token) {
		t.Error("freshly minted token should verify")
	}
	if a.Verify(token + "tampered") {
		t.Error("tampered token should not verify")
	}
	if a.Verify("") {
		t.Error("empty token should not verify")
	}
}

func TestPromoteDemote(t *testing.T) {
	mod := moderation.NewState(newTestLogger())
	a := admin.NewAuthority("s3cret", time.Hour, mod, newTestLogger())

	if !a.Promote("alice", moderation.RoleModerator) {
		t.Fatal("first promote should report a change")
	}
	if a.Promote("alice", moderation.RoleModerator) {
		t.Error("repeat promote should be a no-op")
	}
	if mod.RoleOf("alice") != moderation.RoleModerator {
		t.Error("promotion not reflected in moderation state")
	}
	if !a.Demote("alice") {
		t.Error("demote should report a change")
	}
	if mod.RoleOf("alice") != moderation.RoleUser {
		t.Error("demotion not reflected in moderation state")
	}
}

func TestLogSinkBounded(t *testing.T) {
	sink := admin.NewLogSink()
	for i := 0; i < 150; i++ {
		sink.Push(admin.LogEntry{Room: "red", Sender: "alice", Text: fmt.Sprintf("msg %d", i), Timestamp: time.Now()})
	}

	entries := sink.Entries()
	if len(entries) != 100 {
		t.Fatalf("expected log bounded to 100, got %d", len(entries))
	}
	if entries[0].Text != "msg 50" {
		t.Errorf("expected oldest surviving entry to be msg 50, got %q", entries[0].Text)
	}
}

func TestReportSinkAppendOnly(t *testing.T) {
	sink := admin.NewReportSink()
	sink.Add(admin.Report{Reporter: "alice", Reported: "bob", Reason: "spam", At: time.Now()})
	sink.Add(admin.Report{Reporter: "carol", Reported: "bob", Reason: "rude", At: time.Now()})

	reports := sink.Reports()
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Reporter != "alice" || reports[1].Reporter != "carol" {
		t.Error("reports not in append order")
	}
}
