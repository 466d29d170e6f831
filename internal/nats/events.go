package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every chat event.
const StreamEvents = "RAGCHAT_EVENTS"

// Subject constants.
const (
	SubjectEventsAll     = "ragchat.events.>"
	SubjectChatCompleted = "ragchat.events.chat.completed"
	SubjectChatFailed    = "ragchat.events.chat.failed"
)

// Chat event statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ChatEvent is published once per chat request after the response was written.
// It carries no message content.
type ChatEvent struct {
	ID           uuid.UUID `json:"id"`
	RequestID    string    `json:"request_id,omitempty"`
	Profile      string    `json:"profile"`
	Status       string    `json:"status"`
	MessageCount int       `json:"message_count"`
	SourceIDs    []string  `json:"source_ids,omitempty"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// Subject returns the subject the event is published on.
func (e ChatEvent) Subject() string {
	if e.Status == StatusFailed {
		return SubjectChatFailed
	}
	return SubjectChatCompleted
}
