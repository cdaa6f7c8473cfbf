// Package manager wires process runners, the dependency graph, and a
// tiered-but-data-flow-driven start protocol into a single coordinator,
// per spec.md §4.8.
package manager

import "github.com/rung-dev/rung/internal/config"

// EventKind tags the variant of an Event.
type EventKind string

const (
	EventStatus EventKind = "status"
	EventOutput EventKind = "output"
	EventExit   EventKind = "exit"
	EventError  EventKind = "error"
)

// Event is the tagged union emitted to listeners, per spec.md §6 "Outbound
// events". Only the field matching Kind is meaningful. RunID correlates every
// event from a single Manager instance, for log aggregation or tracing.
type Event struct {
	Kind   EventKind
	Name   string
	Status config.Status
	Output []byte
	Code   *int
	RunID  string
}

// Listener receives events in the order the manager's coordinator goroutine
// produces them. A listener must not block: spec.md §5 requires event
// delivery to be synchronous and non-blocking from the coordinator's
// perspective.
type Listener func(Event)
