// Package ratelimit implements per-session sliding-window admission control.
package ratelimit

import (
	"sync"
	"time"
)

// Window retains the timestamps of recently accepted sends. A send is
// admitted only while fewer than max timestamps fall inside the trailing
// window; rejected sends do not consume a slot.
type Window struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	times  []time.Time
}

func NewWindow(max int, window time.Duration) *Window {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Window{max: max, window: window}
}

// Allow is AllowAt with the current wall clock.
func (w *Window) Allow() bool {
	return w.AllowAt(time.Now())
}

// AllowAt admits or rejects a send observed at the given instant.
func (w *Window) AllowAt(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.window)
	kept := w.times[:0]
	for _, t := range w.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.times = kept

	if len(w.times) >= w.max {
		return false
	}
	w.times = append(w.times, now)
	return true
}
