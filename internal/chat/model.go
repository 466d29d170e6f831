package chat

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in a chat transcript.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

// Transcript is the ordered conversation posted by the client. The last
// element is the current query.
type Transcript []Message

// Last returns the final message. The transcript must not be empty.
func (t Transcript) Last() Message {
	return t[len(t)-1]
}

// Prior returns every message except the last, in original order.
func (t Transcript) Prior() Transcript {
	return t[:len(t)-1]
}

// Reply is the responder's answer to a transcript.
type Reply struct {
	Text string
	// SourceIDs are the ids of the retrieved records, in retrieval order.
	SourceIDs []string
}

// ProfileInfo is the widget copy of the active deployment profile.
type ProfileInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Greeting string `json:"greeting"`
}
