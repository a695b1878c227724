package domain

import "time"

// MessageSource tags where a chat message originated.
type MessageSource string

const (
	SourceText  MessageSource = "text"
	SourceVoice MessageSource = "voice"
)

// ChatMessage is one entry in the merged tutor conversation. Messages are
// never mutated after creation, with one exception: a placeholder message
// may be replaced in place by its final outcome (for example while a
// problem is being generated).
type ChatMessage struct {
	ID                string        `json:"id"`
	Role              string        `json:"role"` // "user" or "assistant"
	Content           string        `json:"content"`
	Timestamp         time.Time     `json:"timestamp"`
	Source            MessageSource `json:"source"`
	NeedsConfirmation bool          `json:"needsConfirmation,omitempty"`
}

// ConversationMessage is a voice-side transcript entry as reported by the
// voice provider. The provider's ordering is authoritative for anything
// said during a call.
type ConversationMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant" or "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
