package app

import (
	"fmt"
	"time"

	"arduino-radar.klederson.com/internal/ui"
)

// EventLog is a circular buffer of dashboard log lines.
type EventLog struct {
	buf   []ui.LogEntry
	pos   int
	count int
}

// NewEventLog creates a new circular buffer with the given capacity.
func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = 1
	}
	return &EventLog{
		buf: make([]ui.LogEntry, capacity),
	}
}

// Push adds an entry to the ring buffer.
func (r *EventLog) Push(e ui.LogEntry) {
	r.buf[r.pos] = e
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Addf formats and pushes an entry.
func (r *EventLog) Addf(at time.Time, level, format string, args ...any) {
	r.Push(ui.LogEntry{Time: at, Level: level, Text: fmt.Sprintf(format, args...)})
}

// Entries returns all stored entries in chronological order.
func (r *EventLog) Entries() []ui.LogEntry {
	if r.count == 0 {
		return nil
	}
	result := make([]ui.LogEntry, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Last returns the most recent entry.
func (r *EventLog) Last() (ui.LogEntry, bool) {
	if r.count == 0 {
		return ui.LogEntry{}, false
	}
	idx := (r.pos - 1 + len(r.buf)) % len(r.buf)
	return r.buf[idx], true
}

// Len returns the number of stored entries.
func (r *EventLog) Len() int {
	return r.count
}
