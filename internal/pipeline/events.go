package pipeline

import "time"

// EventType tags the variant of a pipeline event.
type EventType string

const (
	EventStatus   EventType = "status"
	EventPartial  EventType = "partial"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// Partial payload kinds, one per result-bearing stage.
const (
	KindVideos = "videos"
	KindTopics = "topics"
	KindNews   = "news"
	KindForum  = "forum"
	KindIdeas  = "ideas"
)

// Event is one element of the stream a pipeline run emits. Events arrive in
// stage order; the news and forum partials may arrive in either relative
// order. Exactly one complete or error event terminates a run.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Kind    string    `json:"kind,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// RateLimitInfo is the machine-usable payload attached to a rate-limit error.
type RateLimitInfo struct {
	ResetAt time.Time `json:"reset_at"`
}

func statusEvent(message string) Event {
	return Event{Type: EventStatus, Message: message}
}

func partialEvent(kind string, data any) Event {
	return Event{Type: EventPartial, Kind: kind, Data: data}
}

func errorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

func completeEvent() Event {
	return Event{Type: EventComplete}
}
