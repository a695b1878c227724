// Package session owns per-user tutoring state: the active question, the
// workspace, both conversation streams, the voice session, and the
// confirmation gate between problem discussion and problem generation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codejitsu/codejitsu/internal/conversation"
	"github.com/codejitsu/codejitsu/internal/domain"
	"github.com/codejitsu/codejitsu/internal/tutor"
	"github.com/codejitsu/codejitsu/internal/voice"
	"github.com/google/uuid"
)

var (
	// ErrAwaitingConfirmation is returned when a new message arrives while
	// the confirmation gate is open.
	ErrAwaitingConfirmation = errors.New("a confirmation is pending, answer it first")
	// ErrNoPendingConfirmation is returned when Confirm is called with the
	// gate closed.
	ErrNoPendingConfirmation = errors.New("no confirmation is pending")
	// ErrStaleQuestion is returned when an update names a question that is
	// no longer active. Late diagram responses hit this after a switch.
	ErrStaleQuestion = errors.New("update targets a question that is no longer active")
	// ErrVoiceUnavailable is returned for voice operations when no voice
	// provider is configured.
	ErrVoiceUnavailable = errors.New("voice is not configured")
)

// Generator produces a coding problem from conversation context. Satisfied
// by the tutor service; narrowed to an interface so tests can stub it.
type Generator interface {
	Generate(ctx context.Context, conversationContext string) (*tutor.Result, error)
}

// Session is one user's tutoring state. All mutating methods are safe for
// concurrent use.
type Session struct {
	userID    string
	generator Generator
	detector  *conversation.Detector
	logger    *slog.Logger

	// confirmPauseDelay is how long the voice call keeps running after a
	// confirmation question is detected, so a follow-up assistant sentence
	// does not race the pause.
	confirmPauseDelay time.Duration

	mu           sync.Mutex
	question     *domain.Question
	workspace    domain.Workspace
	textLog      []domain.ChatMessage
	voiceLog     []domain.ConversationMessage
	awaiting     bool
	confirmMsgID string
	confirmTimer *time.Timer
	lastTouched  time.Time

	voice *voice.Manager

	subMu   sync.Mutex
	subs    map[int64]chan Event
	nextSub int64
}

func newSession(userID string, generator Generator, detector *conversation.Detector, vm *voice.Manager, confirmPauseDelay time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if detector == nil {
		detector = conversation.NewDetector()
	}
	s := &Session{
		userID:            userID,
		generator:         generator,
		detector:          detector,
		logger:            logger.With("user_id", userID),
		confirmPauseDelay: confirmPauseDelay,
		voice:             vm,
		lastTouched:       time.Now(),
		subs:              make(map[int64]chan Event),
	}
	if vm != nil {
		vm.OnTranscript(s.handleVoiceTranscript)
		vm.OnStateChange(s.handleVoiceState)
	}
	return s
}

// Snapshot is the full session view returned by GET /api/session.
type Snapshot struct {
	Question             *domain.Question     `json:"question,omitempty"`
	Workspace            domain.Workspace     `json:"workspace"`
	Timeline             []domain.ChatMessage `json:"timeline"`
	VoiceState           string               `json:"voiceState"`
	AwaitingConfirmation bool                 `json:"awaitingConfirmation"`
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Question:             s.question,
		Workspace:            s.workspace,
		Timeline:             s.timelineLocked(),
		VoiceState:           string(voice.StateIdle),
		AwaitingConfirmation: s.awaiting,
	}
	s.mu.Unlock()

	if s.voice != nil {
		snap.VoiceState = string(s.voice.State())
	}
	return snap
}

// Touch marks the session as recently used.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastTouched = time.Now()
	s.mu.Unlock()
}

func (s *Session) expired(ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastTouched) > ttl
}

// SetQuestion installs a new active question. The workspace is rebuilt
// around it: pseudocode and diagrams clear, the code editor takes the new
// starter. The chat timeline survives the switch.
func (s *Session) SetQuestion(q domain.Question) {
	s.mu.Lock()
	s.question = &q
	s.workspace.ApplyQuestion(&q)
	workspace := s.workspace
	s.mu.Unlock()

	s.publish(newEvent(EventQuestion, q))
	s.publish(newEvent(EventWorkspace, workspace))
}

// Question returns the active question, or nil.
func (s *Session) Question() *domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.question
}

// ResetWorkspace restores the workspace to the active question's initial
// state and bumps the reset counter.
func (s *Session) ResetWorkspace() domain.Workspace {
	s.mu.Lock()
	s.workspace.Reset(s.question)
	workspace := s.workspace
	s.mu.Unlock()

	s.publish(newEvent(EventWorkspace, workspace))
	return workspace
}

// WorkspaceUpdate is a partial workspace write. Nil fields are untouched.
type WorkspaceUpdate struct {
	QuestionID         int     `json:"questionId"`
	PseudoCode         *string `json:"pseudoCode,omitempty"`
	PythonCode         *string `json:"pythonCode,omitempty"`
	Diagram            *string `json:"diagram,omitempty"`
	AIGeneratedDiagram *string `json:"aiGeneratedDiagram,omitempty"`
}

// UpdateWorkspace applies a partial update. The update must name the active
// question; anything else is a stale write from before a switch and is
// rejected rather than clobbering the fresh workspace.
func (s *Session) UpdateWorkspace(update WorkspaceUpdate) (domain.Workspace, error) {
	s.mu.Lock()
	if s.question == nil || s.question.ID != update.QuestionID {
		s.mu.Unlock()
		return domain.Workspace{}, fmt.Errorf("%w: question %d", ErrStaleQuestion, update.QuestionID)
	}
	if update.PseudoCode != nil {
		s.workspace.PseudoCode = *update.PseudoCode
	}
	if update.PythonCode != nil {
		s.workspace.PythonCode = *update.PythonCode
	}
	if update.Diagram != nil {
		s.workspace.Diagram = *update.Diagram
	}
	if update.AIGeneratedDiagram != nil {
		s.workspace.AIGeneratedDiagram = *update.AIGeneratedDiagram
	}
	workspace := s.workspace
	s.mu.Unlock()

	s.publish(newEvent(EventWorkspace, workspace))
	return workspace, nil
}

// Workspace returns a copy of the current workspace.
func (s *Session) Workspace() domain.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace
}

// TutorRequest builds a tutor invocation from the stored session state plus
// the user's new message, and records the message on the text timeline.
// Returns ErrAwaitingConfirmation while the gate is open: the pending
// question must be answered before the conversation moves on.
func (s *Session) TutorRequest(message, mode string) (tutor.Request, error) {
	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return tutor.Request{}, ErrAwaitingConfirmation
	}

	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "user",
		Content:   message,
		Timestamp: time.Now(),
		Source:    domain.SourceText,
	}
	s.textLog = append(s.textLog, msg)

	req := tutor.Request{
		Message:        message,
		Mode:           mode,
		UserCode:       s.workspace.PythonCode,
		UserPseudoCode: s.workspace.PseudoCode,
		UserDiagram:    s.workspace.Diagram,
		ChatHistory:    renderHistory(conversation.Merge(s.textLog, s.voiceLog)),
		Question:       s.question,
	}
	s.mu.Unlock()

	s.publish(newEvent(EventMessage, msg))
	return req, nil
}

// RecordResult folds a tutor result back into the session: the assistant
// reply joins the timeline, a generated question is installed, and the
// reply is checked for a confirmation question.
func (s *Session) RecordResult(res *tutor.Result) {
	content := res.Response
	if res.Question != nil {
		content = res.FallbackNote
		if content == "" {
			content = "Here's the problem: " + res.Question.Title
		}
	}

	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "assistant",
		Content:   content,
		Timestamp: time.Now(),
		Source:    domain.SourceText,
	}

	s.mu.Lock()
	s.textLog = append(s.textLog, msg)
	s.mu.Unlock()
	s.publish(newEvent(EventMessage, msg))

	if res.Question != nil {
		s.SetQuestion(*res.Question)
		return
	}
	s.detect()
}

// Confirm answers the pending confirmation. On acceptance the problem is
// generated from the accumulated conversation, installed as the active
// question, and any voice session ends; the discussion phase is over. On
// denial the gate clears and a paused voice session resumes.
//
// Generation context is the live merged timeline rather than a snapshot
// taken at detection time. The two only diverge when messages land between
// detection and the answer, and those turns are part of the discussion the
// problem should reflect.
func (s *Session) Confirm(ctx context.Context, accepted bool) (*tutor.Result, error) {
	s.mu.Lock()
	if !s.awaiting {
		s.mu.Unlock()
		return nil, ErrNoPendingConfirmation
	}
	s.awaiting = false
	confirmMsgID := s.confirmMsgID
	s.confirmMsgID = ""
	if s.confirmTimer != nil {
		s.confirmTimer.Stop()
		s.confirmTimer = nil
	}
	conversationContext := renderHistory(conversation.Merge(s.textLog, s.voiceLog))
	s.mu.Unlock()

	s.publish(newEvent(EventConfirmation, map[string]bool{"pending": false, "accepted": accepted}))

	if !accepted {
		if s.voice != nil && s.voice.State() == voice.StatePaused {
			if err := s.voice.Resume(ctx); err != nil {
				s.logger.Warn("failed to resume voice after denial", "error", err)
			}
		}
		return nil, nil
	}

	res, err := s.generator.Generate(ctx, conversationContext)
	if err != nil {
		// Generation failed outright; reopen the gate so the user can retry.
		s.mu.Lock()
		s.awaiting = true
		s.confirmMsgID = confirmMsgID
		s.mu.Unlock()
		return nil, err
	}

	if s.voice != nil && s.voice.State() != voice.StateIdle {
		if endErr := s.voice.End(ctx); endErr != nil {
			s.logger.Warn("failed to end voice after generation", "error", endErr)
		}
	}
	if res.Question != nil {
		s.SetQuestion(*res.Question)
	}
	return res, nil
}

// StartVoice opens a voice call seeded with the current workspace context.
func (s *Session) StartVoice(ctx context.Context) error {
	if s.voice == nil {
		return ErrVoiceUnavailable
	}
	s.mu.Lock()
	s.voiceLog = nil
	payload := s.voiceContextLocked()
	s.mu.Unlock()
	return s.voice.Start(ctx, payload)
}

// PauseVoice suspends the voice call.
func (s *Session) PauseVoice(ctx context.Context) error {
	if s.voice == nil {
		return ErrVoiceUnavailable
	}
	return s.voice.Pause(ctx)
}

// ResumeVoice reopens a paused voice call.
func (s *Session) ResumeVoice(ctx context.Context) error {
	if s.voice == nil {
		return ErrVoiceUnavailable
	}
	return s.voice.Resume(ctx)
}

// EndVoice terminates the voice call.
func (s *Session) EndVoice(ctx context.Context) error {
	if s.voice == nil {
		return ErrVoiceUnavailable
	}
	return s.voice.End(ctx)
}

// InjectVoiceContext pushes fresh workspace context into the live call.
func (s *Session) InjectVoiceContext(ctx context.Context, extra string) error {
	if s.voice == nil {
		return ErrVoiceUnavailable
	}
	s.mu.Lock()
	payload := s.voiceContextLocked()
	s.mu.Unlock()
	if extra != "" {
		payload += "\n" + extra
	}
	return s.voice.InjectContext(ctx, payload)
}

// Close releases the session's resources.
func (s *Session) Close() {
	s.mu.Lock()
	if s.confirmTimer != nil {
		s.confirmTimer.Stop()
		s.confirmTimer = nil
	}
	s.mu.Unlock()

	if s.voice != nil {
		s.voice.Close()
	}

	s.subMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()
}

// handleVoiceTranscript runs for every transcript entry from the voice
// provider. Assistant turns go through the same confirmation detection as
// text replies.
func (s *Session) handleVoiceTranscript(msg domain.ConversationMessage) {
	s.mu.Lock()
	s.voiceLog = append(s.voiceLog, msg)
	s.mu.Unlock()

	s.publish(newEvent(EventMessage, domain.ChatMessage{
		ID:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		Source:    domain.SourceVoice,
	}))

	if msg.Role == "assistant" {
		s.detect()
	}
}

func (s *Session) handleVoiceState(state voice.State) {
	s.publish(newEvent(EventVoiceState, string(state)))
}

// detect opens the confirmation gate when the latest assistant message asks
// for one. The triggering message is remembered by ID so timeline views can
// mark it while the gate is open; that is where the client's Yes/No control
// belongs. With a live voice call the pause is delayed briefly so a trailing
// assistant sentence does not thrash the call up and down.
func (s *Session) detect() {
	s.mu.Lock()
	timeline := conversation.Merge(s.textLog, s.voiceLog)
	idx, asks := s.detector.NeedsConfirmation(timeline)
	if s.awaiting || !asks {
		s.mu.Unlock()
		return
	}
	s.awaiting = true
	s.confirmMsgID = timeline[idx].ID

	shouldPause := s.voice != nil && s.voice.State() == voice.StateActive
	if shouldPause {
		s.confirmTimer = time.AfterFunc(s.confirmPauseDelay, s.confirmPause)
	}
	s.mu.Unlock()

	s.logger.Info("confirmation question detected", "voice_pause_scheduled", shouldPause)
	s.publish(newEvent(EventConfirmation, map[string]any{
		"pending":   true,
		"messageId": timeline[idx].ID,
	}))
}

// confirmPause fires after the anti-thrash delay: if the gate is still
// open, pause the voice call while the user decides.
func (s *Session) confirmPause() {
	s.mu.Lock()
	stillAwaiting := s.awaiting
	s.confirmTimer = nil
	s.mu.Unlock()

	if !stillAwaiting || s.voice == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.voice.Pause(ctx); err != nil && !errors.Is(err, voice.ErrInvalidTransition) {
		s.logger.Warn("failed to pause voice for confirmation", "error", err)
	}
}

// timelineLocked merges both streams and marks the message that opened the
// confirmation gate, if one is pending. Caller holds s.mu.
func (s *Session) timelineLocked() []domain.ChatMessage {
	timeline := conversation.Merge(s.textLog, s.voiceLog)
	if s.confirmMsgID == "" {
		return timeline
	}
	for i := range timeline {
		if timeline[i].ID == s.confirmMsgID {
			timeline[i].NeedsConfirmation = true
			break
		}
	}
	return timeline
}

// voiceContextLocked renders the workspace for the voice assistant. Caller
// holds s.mu.
func (s *Session) voiceContextLocked() string {
	var b strings.Builder
	if s.question != nil {
		fmt.Fprintf(&b, "Current problem: %s (%s, %s)\n%s\n\n",
			s.question.Title, s.question.Difficulty, s.question.Category, s.question.Description)
	}
	if s.workspace.PseudoCode != "" {
		b.WriteString("Student's pseudocode:\n" + s.workspace.PseudoCode + "\n\n")
	}
	if s.workspace.PythonCode != "" {
		b.WriteString("Student's Python code:\n" + s.workspace.PythonCode + "\n\n")
	}
	if history := renderHistory(conversation.Merge(s.textLog, s.voiceLog)); history != "" {
		b.WriteString("Conversation so far:\n" + history)
	}
	return b.String()
}

func renderHistory(timeline []domain.ChatMessage) string {
	var b strings.Builder
	for _, msg := range timeline {
		b.WriteString(msg.Role + ": " + msg.Content + "\n")
	}
	return b.String()
}

// Subscribe registers a stream consumer. Events are dropped rather than
// blocking when the consumer falls behind.
func (s *Session) Subscribe() (int64, <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	ch := make(chan Event, 32)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a stream consumer.
func (s *Session) Unsubscribe(id int64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
