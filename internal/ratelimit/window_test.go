package ratelimit_test

import (
	"testing"
	"time"

	"github.com/ColdDevYT/Star-Chat/internal/ratelimit"
)

func TestWindowCapWithinInterval(t *testing.T) {
	w := ratelimit.NewWindow(5, 10*time.Second)
	base := time.Now()

	for i := 0; i < 5; i++ {
		if !w.AllowAt(base.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("send %d should have been admitted", i+1)
		}
	}
	if w.AllowAt(base.Add(5 * time.Second)) {
		t.Fatal("6th send inside the window should have been rejected")
	}
}

func TestRejectionDoesNotConsumeSlot(t *testing.T) {
	w := ratelimit.NewWindow(2, 10*time.Second)
	base := time.Now()

	w.AllowAt(base)
	w.AllowAt(base.Add(time.Second))
	// Repeated rejections must not push the window forward.
	for i := 0; i < 3; i++ {
		if w.AllowAt(base.Add(2 * time.Second)) {
			t.Fatal("send over the cap should have been rejected")
		}
	}
	// Once the oldest timestamp leaves the window, a slot frees up.
	if !w.AllowAt(base.Add(10*time.Second + time.Millisecond)) {
		t.Fatal("send should be admitted after the oldest timestamp expired")
	}
}

func TestWindowSlides(t *testing.T) {
	w := ratelimit.NewWindow(5, 10*time.Second)
	base := time.Now()

	for i := 0; i < 5; i++ {
		w.AllowAt(base.Add(time.Duration(i) * time.Second))
	}
	// base+0 expires at base+10s; only then does capacity return.
	if w.AllowAt(base.Add(9 * time.Second)) {
		t.Fatal("expected rejection while all timestamps are in-window")
	}
	if !w.AllowAt(base.Add(10*time.Second + time.Millisecond)) {
		t.Fatal("expected admission after window slid past the oldest send")
	}
}
