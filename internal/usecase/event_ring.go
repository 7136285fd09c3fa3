package usecase

import (
	"sync"

	"TapeWatch/internal/domain/models"
)

// EventRing keeps the most recent monitor events in a fixed-size ring so
// the API can serve "what just happened" without an unbounded log.
type EventRing struct {
	mu   sync.RWMutex
	buf  []models.MonitorEvent
	next int
	full bool
}

// NewEventRing creates a ring holding up to size events.
func NewEventRing(size int) *EventRing {
	if size <= 0 {
		size = 256
	}
	return &EventRing{buf: make([]models.MonitorEvent, size)}
}

// Record appends one event, evicting the oldest when full.
func (r *EventRing) Record(ev models.MonitorEvent) {
	r.mu.Lock()
	r.buf[r.next] = ev
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// Recent returns up to limit events, newest first.
func (r *EventRing) Recent(limit int) []models.MonitorEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.MonitorEvent, 0, limit)
	idx := r.next - 1
	for len(out) < limit {
		if idx < 0 {
			idx = len(r.buf) - 1
		}
		out = append(out, r.buf[idx])
		idx--
	}
	return out
}

// Clear drops all held events.
func (r *EventRing) Clear() {
	r.mu.Lock()
	r.next = 0
	r.full = false
	r.mu.Unlock()
}
