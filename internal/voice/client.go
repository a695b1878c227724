// Package voice wraps the third-party real-time voice-call provider behind
// an explicit finite-state-machine interface. The rest of the application
// only ever sees the Manager's four operations and state snapshots; provider
// event names never leak out of this package.
package voice

import (
	"context"
	"time"
)

// EventType identifies a provider event.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventMessage     EventType = "message"
	EventError       EventType = "error"
)

// Event is one provider callback, normalized.
type Event struct {
	Type EventType
	// Role qualifies speech events: "assistant" or "user".
	Role string
	// Message carries the transcript entry for EventMessage.
	Message *TranscriptMessage
	// Err carries the provider error text for EventError.
	Err string
}

// TranscriptMessage is a structured transcript entry from the provider.
type TranscriptMessage struct {
	Role      string    `json:"role"` // "user", "assistant" or "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// StartOptions configures a new call.
type StartOptions struct {
	AssistantID string
	// SystemContext is injected as assistant context when the call opens:
	// current code, pseudocode, diagram summary, problem metadata and any
	// serialized prior chat (or a paused-history summary on resume).
	SystemContext string
}

// OutboundMessage is a message pushed into a live call out of band,
// without waiting for a turn boundary.
type OutboundMessage struct {
	Role    string `json:"role"` // usually "system"
	Content string `json:"content"`
	// Speak asks the assistant to voice the content rather than just
	// absorb it as context.
	Speak bool `json:"speak,omitempty"`
}

// Client is the provider transport. Each Start opens a fresh call; the
// provider has no native pause, which is why the Manager tears calls down
// and rebuilds them around its paused state.
type Client interface {
	// Start opens a call. It returns once the transport is established;
	// the call itself is only live after an EventCallStart arrives.
	Start(ctx context.Context, opts StartOptions) error

	// Stop tears down the current call transport.
	Stop(ctx context.Context) error

	// Send pushes an out-of-band message into the live call.
	Send(ctx context.Context, msg OutboundMessage) error

	// Events returns the provider event stream. The channel stays open for
	// the lifetime of the client, across calls.
	Events() <-chan Event
}
