package tts

import "fmt"

// EventKind identifies a renderer notification.
type EventKind int

const (
	// EventStarted is posted when an utterance begins.
	EventStarted EventKind = iota
	// EventFinished is posted when an utterance completes normally.
	EventFinished
	// EventCancelled is posted when an utterance is cut short.
	EventCancelled
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventFinished:
		return "finished"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event is a renderer notification about one utterance.
type Event struct {
	Kind    EventKind
	ChunkID string
}

// Started returns a started event for the chunk.
func Started(id string) Event { return Event{Kind: EventStarted, ChunkID: id} }

// Finished returns a finished event for the chunk.
func Finished(id string) Event { return Event{Kind: EventFinished, ChunkID: id} }

// Cancelled returns a cancelled event for the chunk.
func Cancelled(id string) Event { return Event{Kind: EventCancelled, ChunkID: id} }

func (e Event) String() string {
	return fmt.Sprintf("%s(%s)", e.Kind, e.ChunkID)
}
