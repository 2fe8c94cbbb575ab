package admin

import (
	"sync"
	"time"
)

// LogEntry is one chat line pushed into the admin-visible log.
type LogEntry struct {
	Room      string    `json:"room"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

const logCapacity = 100

// LogSink keeps the last 100 chat lines for the admin surface.
type LogSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (l *LogSink) Push(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if len(l.entries) > logCapacity {
		l.entries = l.entries[len(l.entries)-logCapacity:]
	}
}

func (l *LogSink) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Report is a user complaint, visible only through the admin surface.
type Report struct {
	Reporter string    `json:"reporter"`
	Reported string    `json:"reported"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// ReportSink is append-only for the process lifetime.
type ReportSink struct {
	mu      sync.Mutex
	reports []Report
}

func NewReportSink() *ReportSink {
	return &ReportSink{}
}

func (r *ReportSink) Add(rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *ReportSink) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}
