package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClient struct {
	mu     sync.Mutex
	events chan Event
	starts []StartOptions
	sent   []OutboundMessage
	stops  int
}

func newFakeClient() *fakeClient {
	return &fakeClient{events: make(chan Event, 64)}
}

func (f *fakeClient) Start(_ context.Context, opts StartOptions) error {
	f.mu.Lock()
	f.starts = append(f.starts, opts)
	f.mu.Unlock()
	f.events <- Event{Type: EventCallStart}
	return nil
}

func (f *fakeClient) Stop(context.Context) error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Send(_ context.Context, msg OutboundMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Events() <-chan Event { return f.events }

func (f *fakeClient) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakeClient) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeClient) sentMessages() []OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]OutboundMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeClient) lastStart() StartOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts[len(f.starts)-1]
}

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

func newTestManager(t *testing.T) (*Manager, *fakeClient) {
	t.Helper()
	client := newFakeClient()
	m := NewManager(client, "assistant-1", 10*time.Millisecond, nil)
	t.Cleanup(m.Close)
	return m, client
}

func TestStartActivates(t *testing.T) {
	t.Parallel()

	m, client := newTestManager(t)
	if err := m.Start(context.Background(), "initial context"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.State() != StateActive {
		t.Errorf("state = %s, want active", m.State())
	}
	if client.lastStart().SystemContext != "initial context" {
		t.Error("start context not forwarded to the provider")
	}
	if client.lastStart().AssistantID != "assistant-1" {
		t.Error("assistant id not forwarded")
	}
}

func TestStartOnlyFromIdle(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	if err := m.Start(context.Background(), ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start(context.Background(), ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second start err = %v, want ErrInvalidTransition", err)
	}
}

func TestPauseSnapshotsAndTearsDown(t *testing.T) {
	t.Parallel()

	m, client := newTestManager(t)
	if err := m.Start(context.Background(), ""); err != nil {
		t.Fatalf("start: %v", err)
	}

	client.events <- Event{Type: EventMessage, Message: &TranscriptMessage{Role: "assistant", Content: "hello", Timestamp: time.Now()}}
	client.events <- Event{Type: EventMessage, Message: &TranscriptMessage{Role: "user", Content: "hi", Timestamp: time.Now()}}
	waitFor(t, "transcript", func() bool { return len(m.Transcript()) == 2 })

	if err := m.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if m.State() != StatePaused {
		t.Errorf("state = %s, want paused", m.State())
	}
	if got := len(m.PausedHistory()); got != 2 {
		t.Errorf("paused history length = %d, want 2", got)
	}
	if client.stopCount() != 1 {
		t.Errorf("stops = %d, want transport torn down once", client.stopCount())
	}

	sent := client.sentMessages()
	if len(sent) == 0 || sent[len(sent)-1].Content != pauseCourtesyMessage {
		t.Errorf("courtesy message not sent before teardown: %v", sent)
	}
}

func TestResumeReopensWithHistoryAndSpeaks(t *testing.T) {
	t.Parallel()

	m, client := newTestManager(t)
	if err := m.Start(context.Background(), ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	client.events <- Event{Type: EventMessage, Message: &TranscriptMessage{Role: "user", Content: "let's talk about graphs", Timestamp: time.Now()}}
	waitFor(t, "transcript", func() bool { return len(m.Transcript()) == 1 })
	if err := m.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if err := m.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if m.State() != StateActive {
		t.Errorf("state = %s, want active", m.State())
	}
	if client.startCount() != 2 {
		t.Fatalf("starts = %d, want a brand-new call", client.startCount())
	}

	resumeContext := client.lastStart().SystemContext
	if want := "let's talk about graphs"; !strings.Contains(resumeContext, want) {
		t.Errorf("resume context %q missing history entry %q", resumeContext, want)
	}

	sent := client.sentMessages()
	last := sent[len(sent)-1]
	if last.Content != resumeMessage || !last.Speak {
		t.Errorf("last message = %+v, want the spoken resume message", last)
	}
}

func TestPauseDeferredWhileAssistantSpeaking(t *testing.T) {
	t.Parallel()

	m, client := newTestManager(t)
	if err := m.Start(context.Background(), ""); err != nil {
		t.Fatalf("start: %v", err)
	}

	client.events <- Event{Type: EventSpeechStart, Role: "assistant"}
	waitFor(t, "speaking flag", func() bool { assistant, _ := m.Speaking(); return assistant })

	if err := m.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if m.State() != StateActive {
		t.Fatalf("state = %s, pause should be deferred mid-response", m.State())
	}

	client.events <- Event{Type: EventSpeechEnd, Role: "assistant"}
	waitFor(t, "deferred pause", func() bool { return m.State() == StatePaused })
}

func TestInjectContextOnlyWhenActive(t *testing.T) {
	t.Parallel()

	m, client := newTestManager(t)
	if err := m.InjectContext(context.Background(), "ctx"); !errors.Is(err, ErrNotActive) {
		t.Errorf("inject while idle err = %v, want ErrNotActive", err)
	}

	if err := m.Start(context.Background(), ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.InjectContext(context.Background(), "fresh workspace"); err != nil {
		t.Fatalf("inject while active: %v", err)
	}
	sent := client.sentMessages()
	if sent[len(sent)-1].Content != "fresh workspace" {
		t.Error("injected context not forwarded")
	}

	if err := m.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := m.InjectContext(context.Background(), "ctx"); !errors.Is(err, ErrNotActive) {
		t.Errorf("inject while paused err = %v, want ErrNotActive", err)
	}
}

func TestEndClearsPausedHistory(t *testing.T) {
	t.Parallel()

	m, client := newTestManager(t)
	if err := m.Start(context.Background(), ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	client.events <- Event{Type: EventMessage, Message: &TranscriptMessage{Role: "user", Content: "hi", Timestamp: time.Now()}}
	waitFor(t, "transcript", func() bool { return len(m.Transcript()) == 1 })
	if err := m.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if err := m.End(context.Background()); err != nil {
		t.Fatalf("end: %v", err)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %s, want idle", m.State())
	}
	if len(m.PausedHistory()) != 0 {
		t.Error("paused history should clear on end")
	}

	if err := m.End(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("end while idle err = %v, want ErrInvalidTransition", err)
	}
}

func TestRemoteHangupReturnsToIdle(t *testing.T) {
	t.Parallel()

	m, client := newTestManager(t)
	if err := m.Start(context.Background(), ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	client.events <- Event{Type: EventCallEnd}
	waitFor(t, "idle after hangup", func() bool { return m.State() == StateIdle })
}
