package models

import "time"

// EventKind classifies notifications crossing from the monitoring cycle to
// the consuming side.
type EventKind int8

const (
	EventAlert EventKind = iota
	EventCycleComplete
	EventStatus
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventAlert:
		return "alert"
	case EventCycleComplete:
		return "cycle_complete"
	case EventStatus:
		return "status"
	default:
		return "error"
	}
}

// MonitorEvent is one ordered notification from the monitoring cycle.
// Alerts of a cycle are always delivered before that cycle's completion event.
type MonitorEvent struct {
	Kind    EventKind `json:"kind"`
	Cycle   uint64    `json:"cycle"`
	Time    time.Time `json:"time"`
	Alert   *Alert    `json:"alert,omitempty"`
	Message string    `json:"message,omitempty"`
}
