package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codejitsu/codejitsu/internal/domain"
	"github.com/codejitsu/codejitsu/internal/metrics"
	"github.com/google/uuid"
)

// State is the logical voice-session state. The provider has no pause of
// its own: "paused" means the transport is torn down but the session's
// transcript and context survive for a later resume.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StatePaused     State = "paused"
)

var (
	// ErrInvalidTransition is returned for operations not legal in the
	// current state.
	ErrInvalidTransition = errors.New("invalid voice session transition")
	// ErrNotActive is returned when injectContext is called without a live call.
	ErrNotActive = errors.New("voice session not active")
)

const (
	pauseCourtesyMessage = "I'm going to step away for a moment. Please remember our conversation context - I'll be right back."
	resumeMessage        = "I'm back, let's continue where we left off."
	callStartTimeout     = 15 * time.Second
)

// Manager is the voice session finite state machine:
// idle → connecting → active ⇄ paused → idle.
type Manager struct {
	client      Client
	assistantID string
	settleDelay time.Duration
	logger      *slog.Logger

	mu             sync.Mutex
	state          State
	transcript     []domain.ConversationMessage
	pausedHistory  []domain.ConversationMessage
	isSpeaking     bool
	isUserSpeaking bool
	pausePending   bool
	started        chan struct{} // closed when the current call confirms active

	// onTranscript is invoked (outside the lock) for every transcript
	// entry so the session controller can merge and run detection.
	onTranscript func(domain.ConversationMessage)
	// onStateChange is invoked (outside the lock) on every state change.
	onStateChange func(State)

	done chan struct{}
}

// NewManager creates a voice session manager and starts consuming the
// client's event stream.
func NewManager(client Client, assistantID string, settleDelay time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		client:      client,
		assistantID: assistantID,
		settleDelay: settleDelay,
		logger:      logger,
		state:       StateIdle,
		done:        make(chan struct{}),
	}
	go m.eventLoop()
	return m
}

// OnTranscript registers the transcript callback. Must be called before
// the first Start.
func (m *Manager) OnTranscript(fn func(domain.ConversationMessage)) { m.onTranscript = fn }

// OnStateChange registers the state-change callback. Must be called before
// the first Start.
func (m *Manager) OnStateChange(fn func(State)) { m.onStateChange = fn }

// State returns the current logical state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Speaking reports the presentational speaking flags (assistant, user).
func (m *Manager) Speaking() (assistant, user bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isSpeaking, m.isUserSpeaking
}

// Transcript returns a copy of the live transcript.
func (m *Manager) Transcript() []domain.ConversationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyMessages(m.transcript)
}

// PausedHistory returns a copy of the snapshot taken at pause time.
func (m *Manager) PausedHistory() []domain.ConversationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyMessages(m.pausedHistory)
}

// Start opens a new call with the given context payload. Valid only from
// idle; any previous paused history is cleared.
func (m *Manager) Start(ctx context.Context, contextPayload string) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, m.state)
	}
	m.pausedHistory = nil
	m.transcript = nil
	m.mu.Unlock()

	return m.openCall(ctx, contextPayload)
}

// Pause suspends the session. Valid only from active. The transcript is
// snapshotted, a courtesy message asks the remote party to remember
// context, and the transport is torn down while the logical state stays
// paused. If the assistant is mid-response the pause is deferred until the
// response finishes, to avoid truncating it.
func (m *Manager) Pause(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, m.state)
	}
	if m.isSpeaking {
		m.pausePending = true
		m.mu.Unlock()
		m.logger.Info("pause deferred until assistant finishes speaking")
		return nil
	}
	m.mu.Unlock()
	return m.doPause(ctx)
}

func (m *Manager) doPause(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return nil // raced with end or call loss
	}
	m.pausedHistory = copyMessages(m.transcript)
	m.pausePending = false
	m.mu.Unlock()

	if err := m.client.Send(ctx, OutboundMessage{Role: "system", Content: pauseCourtesyMessage}); err != nil {
		m.logger.Warn("failed to send pause courtesy message", "error", err)
	}
	if err := m.client.Stop(ctx); err != nil {
		m.logger.Warn("failed to stop voice transport on pause", "error", err)
	}

	m.setState(StatePaused)
	return nil
}

// Resume reopens the session from paused: a brand-new call is started with
// the paused history re-injected as initial context, and a short "I'm
// back" message is voiced after a fixed settle delay once the new call is
// confirmed active.
func (m *Manager) Resume(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StatePaused {
		m.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, m.state)
	}
	summary := summarizeHistory(m.pausedHistory)
	m.mu.Unlock()

	if err := m.openCall(ctx, summary); err != nil {
		return err
	}

	// Give the provider a moment to settle before speaking.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.settleDelay):
	}
	if err := m.client.Send(ctx, OutboundMessage{Role: "system", Content: resumeMessage, Speak: true}); err != nil {
		m.logger.Warn("failed to send resume message", "error", err)
	}
	return nil
}

// End terminates the session from active or paused: transport torn down,
// paused history cleared, state back to idle.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateActive && m.state != StatePaused {
		m.mu.Unlock()
		return fmt.Errorf("%w: end from %s", ErrInvalidTransition, m.state)
	}
	wasActive := m.state == StateActive
	m.pausedHistory = nil
	m.pausePending = false
	m.mu.Unlock()

	if wasActive {
		if err := m.client.Stop(ctx); err != nil {
			m.logger.Warn("failed to stop voice transport on end", "error", err)
		}
	}
	m.setState(StateIdle)
	return nil
}

// InjectContext sends an out-of-band message into the live call without
// waiting for a turn boundary. Valid only while active.
func (m *Manager) InjectContext(ctx context.Context, content string) error {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state != StateActive {
		return fmt.Errorf("%w: state %s", ErrNotActive, state)
	}
	return m.client.Send(ctx, OutboundMessage{Role: "system", Content: content})
}

// Close stops the event loop. The underlying call, if any, is ended first.
func (m *Manager) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if m.State() == StateActive || m.State() == StatePaused {
		if err := m.End(ctx); err != nil {
			m.logger.Warn("failed to end voice session on close", "error", err)
		}
	}
	close(m.done)
}

// openCall dials a new call and waits for the provider's call-start event.
func (m *Manager) openCall(ctx context.Context, contextPayload string) error {
	m.mu.Lock()
	m.started = make(chan struct{})
	started := m.started
	m.mu.Unlock()
	m.setState(StateConnecting)

	if err := m.client.Start(ctx, StartOptions{
		AssistantID:   m.assistantID,
		SystemContext: contextPayload,
	}); err != nil {
		m.setState(StateIdle)
		return fmt.Errorf("start voice call: %w", err)
	}

	select {
	case <-started:
		return nil
	case <-ctx.Done():
		_ = m.client.Stop(context.Background())
		m.setState(StateIdle)
		return ctx.Err()
	case <-time.After(callStartTimeout):
		_ = m.client.Stop(ctx)
		m.setState(StateIdle)
		return fmt.Errorf("voice call did not start within %s", callStartTimeout)
	}
}

func (m *Manager) eventLoop() {
	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-m.client.Events():
			if !ok {
				return
			}
			m.handleEvent(ev)
		}
	}
}

func (m *Manager) handleEvent(ev Event) {
	switch ev.Type {
	case EventCallStart:
		m.mu.Lock()
		started := m.started
		isConnecting := m.state == StateConnecting
		m.mu.Unlock()
		if isConnecting {
			m.setState(StateActive)
			if started != nil {
				close(started)
			}
		}

	case EventCallEnd:
		m.mu.Lock()
		// A call-end while paused is expected: we tore the transport down
		// ourselves. Only an end during active is a remote hangup.
		remoteHangup := m.state == StateActive
		m.mu.Unlock()
		if remoteHangup {
			m.logger.Info("voice call ended by remote")
			m.setState(StateIdle)
		}

	case EventSpeechStart:
		m.mu.Lock()
		if ev.Role == "user" {
			m.isUserSpeaking = true
		} else {
			m.isSpeaking = true
		}
		m.mu.Unlock()

	case EventSpeechEnd:
		m.mu.Lock()
		var deferred bool
		if ev.Role == "user" {
			m.isUserSpeaking = false
		} else {
			m.isSpeaking = false
			deferred = m.pausePending
		}
		m.mu.Unlock()
		if deferred {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := m.doPause(ctx); err != nil {
				m.logger.Warn("deferred pause failed", "error", err)
			}
			cancel()
		}

	case EventMessage:
		if ev.Message == nil {
			return
		}
		msg := domain.ConversationMessage{
			ID:        uuid.NewString(),
			Role:      ev.Message.Role,
			Content:   ev.Message.Content,
			Timestamp: ev.Message.Timestamp,
		}
		m.mu.Lock()
		m.transcript = append(m.transcript, msg)
		m.mu.Unlock()
		if m.onTranscript != nil {
			m.onTranscript(msg)
		}

	case EventError:
		m.logger.Error("voice provider error", "error", ev.Err)
	}
}

func (m *Manager) setState(next State) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	m.mu.Unlock()
	if prev == next {
		return
	}
	metrics.IncVoiceTransition(string(prev), string(next))
	m.logger.Info("voice session state", "from", prev, "to", next)
	if m.onStateChange != nil {
		m.onStateChange(next)
	}
}

func copyMessages(in []domain.ConversationMessage) []domain.ConversationMessage {
	if in == nil {
		return nil
	}
	out := make([]domain.ConversationMessage, len(in))
	copy(out, in)
	return out
}

// summarizeHistory renders paused history as a context payload for the
// replacement call.
func summarizeHistory(history []domain.ConversationMessage) string {
	if len(history) == 0 {
		return "The user is resuming a previous conversation."
	}
	out := "Earlier in this conversation:\n"
	for _, msg := range history {
		if msg.Role == "system" {
			continue
		}
		out += msg.Role + ": " + msg.Content + "\n"
	}
	return out
}
