package loom

import "time"

// EventKind identifies the type of event emitted by a stepper.
type EventKind string

const (
	// EventWalkPrepared is emitted when a stepper receives its start
	// targets and initial pack.
	EventWalkPrepared EventKind = "walk.prepared"

	// EventStepStarted is emitted when a generation begins executing.
	EventStepStarted EventKind = "step.started"

	// EventStepFinished is emitted when a generation has produced its
	// successor frontier.
	EventStepFinished EventKind = "step.finished"

	// EventStepFailed is emitted when a row error aborts a generation.
	EventStepFailed EventKind = "step.failed"

	// EventRowExecuted is emitted after each row runs.
	EventRowExecuted EventKind = "row.executed"

	// EventBranchEnded is emitted when a branch terminates and its
	// result is stashed or surfaced.
	EventBranchEnded EventKind = "branch.ended"

	// EventWalkFinished is emitted the first time a step yields an
	// empty frontier.
	EventWalkFinished EventKind = "walk.finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a structured record of stepper progress. Events are emitted
// synchronously on the walking goroutine; handlers must not block.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// WalkID identifies the prepared walk this event belongs to.
	WalkID string

	// Graph is the graph's name.
	Graph string

	// Generation is the 1-indexed step count within the walk.
	Generation int

	// Caller names the row target for row-level events.
	Caller string

	// CallerKind is the row target's shape for row-level events.
	CallerKind string

	// Rows is the size of the produced frontier for step-level events.
	Rows int

	// Err is set on EventStepFailed.
	Err error

	// Time is when the event occurred.
	Time time.Time
}

// EventHandler is a function type for handling stepper events.
// Implementations can log, trace, or count events as needed.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// ChannelEventHandler returns a handler that sends events to a channel.
// Events are dropped if the channel is full.
func ChannelEventHandler(ch chan<- Event) EventHandler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}
