package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codejitsu/codejitsu/internal/domain"
	"github.com/codejitsu/codejitsu/internal/problems"
	"github.com/codejitsu/codejitsu/internal/tutor"
	"github.com/codejitsu/codejitsu/internal/voice"
)

type stubGenerator struct {
	mu         sync.Mutex
	res        *tutor.Result
	err        error
	gotContext string
}

func (g *stubGenerator) Generate(_ context.Context, conversationContext string) (*tutor.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gotContext = conversationContext
	return g.res, g.err
}

func (g *stubGenerator) lastContext() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gotContext
}

type fakeVoiceClient struct {
	mu     sync.Mutex
	events chan voice.Event
	starts int
	stops  int
	sent   []voice.OutboundMessage
}

func newFakeVoiceClient() *fakeVoiceClient {
	return &fakeVoiceClient{events: make(chan voice.Event, 64)}
}

func (f *fakeVoiceClient) Start(context.Context, voice.StartOptions) error {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	f.events <- voice.Event{Type: voice.EventCallStart}
	return nil
}

func (f *fakeVoiceClient) Stop(context.Context) error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}

func (f *fakeVoiceClient) Send(_ context.Context, msg voice.OutboundMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeVoiceClient) Events() <-chan voice.Event { return f.events }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTextSession(t *testing.T, gen Generator) *Session {
	t.Helper()
	s := newSession("user-1", gen, nil, nil, 10*time.Millisecond, nil)
	t.Cleanup(s.Close)
	return s
}

func newVoiceSession(t *testing.T, gen Generator) (*Session, *fakeVoiceClient) {
	t.Helper()
	client := newFakeVoiceClient()
	vm := voice.NewManager(client, "assistant-1", time.Millisecond, nil)
	s := newSession("user-1", gen, nil, vm, 10*time.Millisecond, nil)
	t.Cleanup(s.Close)
	return s, client
}

func catalogQuestion(t *testing.T, id int) domain.Question {
	t.Helper()
	q, ok := problems.ByID(id)
	if !ok {
		t.Fatalf("catalog question %d missing", id)
	}
	return *q
}

func TestSetQuestionResetsWorkspace(t *testing.T) {
	t.Parallel()

	s := newTextSession(t, &stubGenerator{})
	first := catalogQuestion(t, 1)
	s.SetQuestion(first)

	pseudo := "scan with a hash map"
	diagram := "data:text/plain;base64,QQ=="
	if _, err := s.UpdateWorkspace(WorkspaceUpdate{
		QuestionID: first.ID,
		PseudoCode: &pseudo,
		Diagram:    &diagram,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	second := catalogQuestion(t, 2)
	s.SetQuestion(second)

	ws := s.Workspace()
	if ws.PseudoCode != "" {
		t.Error("pseudocode should clear on question switch")
	}
	if ws.Diagram != "" || ws.AIGeneratedDiagram != "" {
		t.Error("diagrams should clear on question switch")
	}
	if ws.PythonCode != second.Starter {
		t.Errorf("python code = %q, want the new starter", ws.PythonCode)
	}
}

func TestResetWorkspaceBumpsCounter(t *testing.T) {
	t.Parallel()

	s := newTextSession(t, &stubGenerator{})
	q := catalogQuestion(t, 1)
	s.SetQuestion(q)

	before := s.Workspace().ResetCounter
	ws := s.ResetWorkspace()
	if ws.ResetCounter != before+1 {
		t.Errorf("reset counter = %d, want %d", ws.ResetCounter, before+1)
	}
	if ws.PythonCode != q.Starter {
		t.Error("reset should restore the starter code")
	}
}

func TestUpdateWorkspaceRejectsStaleQuestion(t *testing.T) {
	t.Parallel()

	s := newTextSession(t, &stubGenerator{})
	s.SetQuestion(catalogQuestion(t, 1))
	s.SetQuestion(catalogQuestion(t, 2))

	// A diagram generated for question 1 resolves after the switch.
	svg := "<svg/>"
	_, err := s.UpdateWorkspace(WorkspaceUpdate{QuestionID: 1, AIGeneratedDiagram: &svg})
	if !errors.Is(err, ErrStaleQuestion) {
		t.Fatalf("err = %v, want ErrStaleQuestion", err)
	}
	if s.Workspace().AIGeneratedDiagram != "" {
		t.Error("stale write must not land")
	}
}

func TestConfirmationGateBlocksMessages(t *testing.T) {
	t.Parallel()

	s := newTextSession(t, &stubGenerator{})
	s.RecordResult(&tutor.Result{Response: "Two Sum, Easy. Should I create this problem for you?"})

	if !s.Snapshot().AwaitingConfirmation {
		t.Fatal("gate should open on a confirmation question")
	}
	if _, err := s.TutorRequest("yes but also tell me about heaps", ""); !errors.Is(err, ErrAwaitingConfirmation) {
		t.Fatalf("err = %v, want ErrAwaitingConfirmation", err)
	}
}

func TestConfirmationMarksTriggeringMessage(t *testing.T) {
	t.Parallel()

	s := newTextSession(t, &stubGenerator{})
	if _, err := s.TutorRequest("let's do arrays", ""); err != nil {
		t.Fatalf("tutor request: %v", err)
	}
	s.RecordResult(&tutor.Result{Response: "Two Sum, Easy. Should I create this problem for you?"})

	snap := s.Snapshot()
	if !snap.AwaitingConfirmation {
		t.Fatal("gate should be open")
	}
	flagged := -1
	for i, msg := range snap.Timeline {
		if msg.NeedsConfirmation {
			if flagged >= 0 {
				t.Fatal("only one message may carry the confirmation flag")
			}
			flagged = i
		}
	}
	if flagged < 0 {
		t.Fatal("the triggering assistant message must carry needsConfirmation")
	}
	if msg := snap.Timeline[flagged]; msg.Role != "assistant" || msg.Content != "Two Sum, Easy. Should I create this problem for you?" {
		t.Errorf("flagged message = %+v, want the confirmation question", msg)
	}

	if _, err := s.Confirm(context.Background(), false); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	for _, msg := range s.Snapshot().Timeline {
		if msg.NeedsConfirmation {
			t.Error("flag should clear once the confirmation is answered")
		}
	}
}

func TestConfirmationEventCarriesMessageID(t *testing.T) {
	t.Parallel()

	s := newTextSession(t, &stubGenerator{})
	id, events := s.Subscribe()
	defer s.Unsubscribe(id)

	s.RecordResult(&tutor.Result{Response: "Does this sound good?"})

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type != EventConfirmation {
				continue
			}
			data, ok := ev.Data.(map[string]any)
			if !ok {
				t.Fatalf("event data = %T", ev.Data)
			}
			msgID, _ := data["messageId"].(string)
			if msgID == "" {
				t.Fatal("confirmation event must name the triggering message")
			}
			snap := s.Snapshot()
			idx := len(snap.Timeline) - 1
			if snap.Timeline[idx].ID != msgID {
				t.Errorf("event messageId = %q, want %q", msgID, snap.Timeline[idx].ID)
			}
			return
		case <-deadline:
			t.Fatal("no confirmation event received")
		}
	}
}

func TestConfirmDeniedClearsGate(t *testing.T) {
	t.Parallel()

	s := newTextSession(t, &stubGenerator{})
	s.RecordResult(&tutor.Result{Response: "Sound good?"})

	res, err := s.Confirm(context.Background(), false)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res != nil {
		t.Error("denial should not generate anything")
	}
	if s.Snapshot().AwaitingConfirmation {
		t.Error("gate should close on denial")
	}
	if _, err := s.Confirm(context.Background(), false); !errors.Is(err, ErrNoPendingConfirmation) {
		t.Errorf("err = %v, want ErrNoPendingConfirmation", err)
	}
}

func TestConfirmAcceptedGeneratesAndInstalls(t *testing.T) {
	t.Parallel()

	q := catalogQuestion(t, 3)
	gen := &stubGenerator{res: &tutor.Result{Question: &q}}
	s := newTextSession(t, gen)

	if _, err := s.TutorRequest("I'd like a tree problem", ""); err != nil {
		t.Fatalf("tutor request: %v", err)
	}
	s.RecordResult(&tutor.Result{Response: "Binary Tree Inorder Traversal, Medium. Should I create this problem for you?"})

	res, err := s.Confirm(context.Background(), true)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Question == nil || res.Question.Title != q.Title {
		t.Fatalf("result question = %+v", res.Question)
	}

	snap := s.Snapshot()
	if snap.Question == nil || snap.Question.ID != q.ID {
		t.Error("generated question should become active")
	}
	if snap.Workspace.PythonCode != q.Starter {
		t.Error("workspace should rebuild around the generated question")
	}
	if gen.lastContext() == "" {
		t.Error("generator should receive the conversation context")
	}
}

func TestConfirmAcceptedGenerationFailureReopensGate(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: errors.New("provider down")}
	s := newTextSession(t, gen)
	s.RecordResult(&tutor.Result{Response: "Sound good?"})

	if _, err := s.Confirm(context.Background(), true); err == nil {
		t.Fatal("expected generation error to propagate")
	}
	snap := s.Snapshot()
	if !snap.AwaitingConfirmation {
		t.Error("gate should reopen so the user can retry")
	}
	var stillFlagged bool
	for _, msg := range snap.Timeline {
		if msg.NeedsConfirmation {
			stillFlagged = true
		}
	}
	if !stillFlagged {
		t.Error("the triggering message should stay flagged while the gate is open")
	}
}

func TestVoiceConfirmationPausesCall(t *testing.T) {
	t.Parallel()

	s, client := newVoiceSession(t, &stubGenerator{})
	if err := s.StartVoice(context.Background()); err != nil {
		t.Fatalf("start voice: %v", err)
	}
	waitFor(t, "active call", func() bool { return s.Snapshot().VoiceState == string(voice.StateActive) })

	client.events <- voice.Event{Type: voice.EventMessage, Message: &voice.TranscriptMessage{
		Role:      "assistant",
		Content:   "Valid Parentheses, Easy. Ready to start with it?",
		Timestamp: time.Now(),
	}}

	waitFor(t, "gate open", func() bool { return s.Snapshot().AwaitingConfirmation })
	waitFor(t, "call paused", func() bool { return s.Snapshot().VoiceState == string(voice.StatePaused) })
}

func TestVoiceConfirmDeniedResumesCall(t *testing.T) {
	t.Parallel()

	s, client := newVoiceSession(t, &stubGenerator{})
	if err := s.StartVoice(context.Background()); err != nil {
		t.Fatalf("start voice: %v", err)
	}
	client.events <- voice.Event{Type: voice.EventMessage, Message: &voice.TranscriptMessage{
		Role:      "assistant",
		Content:   "Shall I create it?",
		Timestamp: time.Now(),
	}}
	waitFor(t, "call paused", func() bool { return s.Snapshot().VoiceState == string(voice.StatePaused) })

	if _, err := s.Confirm(context.Background(), false); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	waitFor(t, "call resumed", func() bool { return s.Snapshot().VoiceState == string(voice.StateActive) })
}

func TestVoiceConfirmAcceptedEndsCall(t *testing.T) {
	t.Parallel()

	q := catalogQuestion(t, 4)
	gen := &stubGenerator{res: &tutor.Result{Question: &q}}
	s, client := newVoiceSession(t, gen)
	if err := s.StartVoice(context.Background()); err != nil {
		t.Fatalf("start voice: %v", err)
	}
	client.events <- voice.Event{Type: voice.EventMessage, Message: &voice.TranscriptMessage{
		Role:      "user",
		Content:   "let's do linked lists",
		Timestamp: time.Now(),
	}}
	client.events <- voice.Event{Type: voice.EventMessage, Message: &voice.TranscriptMessage{
		Role:      "assistant",
		Content:   "Reverse Linked List, Easy. Would you like me to create it?",
		Timestamp: time.Now(),
	}}
	waitFor(t, "call paused", func() bool { return s.Snapshot().VoiceState == string(voice.StatePaused) })

	res, err := s.Confirm(context.Background(), true)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Question == nil {
		t.Fatal("expected a generated question")
	}

	snap := s.Snapshot()
	if snap.VoiceState != string(voice.StateIdle) {
		t.Errorf("voice state = %s, want idle after generation", snap.VoiceState)
	}
	if snap.Question == nil || snap.Question.ID != q.ID {
		t.Error("generated question should be installed")
	}
	if got := gen.lastContext(); got == "" {
		t.Error("generator should see the voice conversation")
	}
}

func TestTimelineMergesVoiceAndText(t *testing.T) {
	t.Parallel()

	s, client := newVoiceSession(t, &stubGenerator{})
	if err := s.StartVoice(context.Background()); err != nil {
		t.Fatalf("start voice: %v", err)
	}

	if _, err := s.TutorRequest("typed question", ""); err != nil {
		t.Fatalf("tutor request: %v", err)
	}
	client.events <- voice.Event{Type: voice.EventMessage, Message: &voice.TranscriptMessage{
		Role:      "user",
		Content:   "spoken question",
		Timestamp: time.Now().Add(time.Second),
	}}

	waitFor(t, "merged timeline", func() bool { return len(s.Snapshot().Timeline) == 2 })

	timeline := s.Snapshot().Timeline
	if timeline[0].Source != domain.SourceText || timeline[1].Source != domain.SourceVoice {
		t.Errorf("timeline sources = %s,%s", timeline[0].Source, timeline[1].Source)
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	t.Parallel()

	s := newTextSession(t, &stubGenerator{})
	id, events := s.Subscribe()
	defer s.Unsubscribe(id)

	s.SetQuestion(catalogQuestion(t, 1))

	select {
	case ev := <-events:
		if ev.Type != EventQuestion {
			t.Errorf("event type = %s, want question", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestVoiceUnavailableWithoutProvider(t *testing.T) {
	t.Parallel()

	s := newTextSession(t, &stubGenerator{})
	if err := s.StartVoice(context.Background()); !errors.Is(err, ErrVoiceUnavailable) {
		t.Errorf("err = %v, want ErrVoiceUnavailable", err)
	}
}
