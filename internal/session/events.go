package session

import (
	"github.com/veriexam/proctor-backend/internal/model"
)

// EventType discriminates outbound session events.
type EventType string

const (
	// EventClock carries the remaining seconds, once per tick.
	EventClock EventType = "clock"
	// EventWarning is raised for every counted integrity violation.
	EventWarning EventType = "warning"
	// EventTimeExpired is raised when the countdown reaches zero. With
	// auto-submit off the session stays in Testing and this is advisory.
	EventTimeExpired EventType = "time_expired"
	// EventTerminated is raised when violations force termination.
	EventTerminated EventType = "terminated"
	// EventSubmitted is raised exactly once, with the result payload.
	EventSubmitted EventType = "submitted"
)

// Event is an outbound notification from a session controller. Consumers
// receive them via Controller.Events.
type Event struct {
	Type             EventType            `json:"type"`
	ViolationCount   int                  `json:"violation_count,omitempty"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Result           *model.ResultPayload `json:"result,omitempty"`
}

// signalKind discriminates the internal async signals feeding the
// controller's run loop.
type signalKind int

const (
	sigTick signalKind = iota
	sigExpired
	sigFocusLost
)

// signal is one entry in the controller's internal event queue. Clock
// ticks and focus-loss reports all funnel through this single queue so
// the controller is the only writer of session state.
type signal struct {
	kind      signalKind
	remaining int
}
