// Package watch triggers new reconstruction passes.
//
// FileWatcher follows local Turtle files matched by doublestar patterns
// and emits one Event per debounce window in which a file's content
// actually changed. NATSTrigger emits an Event for every notification
// published on a subject. Both only signal; running the pass is up to
// the consumer of Events.
package watch

import "time"

// Event asks for a new reconstruction pass.
type Event struct {
	// Reason is "file" or "nats".
	Reason string
	// Paths lists changed files for file events.
	Paths []string
	// At is when the change was detected.
	At time.Time
}

// Reasons reported in Event.Reason.
const (
	ReasonFile = "file"
	ReasonNATS = "nats"
)

// eventChannelBuffer is the size of the event channels.
const eventChannelBuffer = 16
