package session

import "time"

// Event is one server-push notification delivered over the session stream.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	// EventQuestion fires when the active question changes.
	EventQuestion = "question"
	// EventWorkspace fires when the workspace is updated or reset.
	EventWorkspace = "workspace"
	// EventMessage fires for every new timeline message, voice or text.
	EventMessage = "message"
	// EventVoiceState fires on voice session state transitions.
	EventVoiceState = "voice-state"
	// EventConfirmation fires when the assistant asks the user to confirm
	// problem generation, and again when the gate clears.
	EventConfirmation = "confirmation"
)

func newEvent(eventType string, data any) Event {
	return Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
}
