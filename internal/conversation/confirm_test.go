package conversation

import (
	"testing"
	"time"

	"github.com/codejitsu/codejitsu/internal/domain"
)

func TestDetectorTriggerPhrases(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	cases := []string{
		"Two Sum, Easy difficulty. Should I create this problem for you?",
		"Does this sound good?",
		"Are you ready to start with Binary Search?",
		"Shall I generate the problem now?",
		"Shall I create it?",
		"Do you want me to create this one?",
		"Want me to generate something harder?",
		"A classic stack problem. Sound good?",
		"Would you like me to create a tree problem?",
	}
	for _, text := range cases {
		if !d.Match(text) {
			t.Errorf("Match(%q) = false, want true", text)
		}
	}
}

func TestDetectorCaseInsensitive(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	if !d.Match("SHOULD I CREATE THIS PROBLEM FOR YOU?") {
		t.Error("matching must be case-insensitive")
	}
}

func TestDetectorNonTriggers(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	cases := []string{
		"Here's a hint: think about a hash map.",
		"That sounds good to me, keep going!",
		"I created this problem for you already.",
		"",
	}
	for _, text := range cases {
		if d.Match(text) {
			t.Errorf("Match(%q) = true, want false", text)
		}
	}
}

func TestNeedsConfirmationLatestAssistantOnly(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Older assistant turn asked for confirmation, latest did not.
	timeline := []domain.ChatMessage{
		{Role: "assistant", Content: "Should I create this problem for you?", Timestamp: base},
		{Role: "user", Content: "tell me more first", Timestamp: base.Add(time.Second)},
		{Role: "assistant", Content: "It uses a sliding window.", Timestamp: base.Add(2 * time.Second)},
	}
	if _, asks := d.NeedsConfirmation(timeline); asks {
		t.Error("only the latest assistant message should count")
	}

	timeline = append(timeline, domain.ChatMessage{
		Role: "assistant", Content: "Ready to start with Sliding Window Maximum?", Timestamp: base.Add(3 * time.Second),
	})
	idx, asks := d.NeedsConfirmation(timeline)
	if !asks {
		t.Error("latest assistant message asks for confirmation")
	}
	if idx != len(timeline)-1 {
		t.Errorf("index = %d, want the triggering message's position %d", idx, len(timeline)-1)
	}
}

func TestNeedsConfirmationIgnoresUserEcho(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	timeline := []domain.ChatMessage{
		{Role: "assistant", Content: "Try two pointers."},
		{Role: "user", Content: "should i create this problem for you?"},
	}
	if _, asks := d.NeedsConfirmation(timeline); asks {
		t.Error("user messages must never open the gate")
	}
}

func TestDetectorCustomPatterns(t *testing.T) {
	t.Parallel()

	d := NewDetectorWithPatterns([]string{`confirm to proceed`})
	if !d.Match("Please CONFIRM to proceed.") {
		t.Error("custom pattern should match case-insensitively")
	}
	if d.Match("Should I create this problem for you?") {
		t.Error("default patterns should not apply to a custom detector")
	}
}
