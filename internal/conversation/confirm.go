package conversation

import (
	"regexp"

	"github.com/codejitsu/codejitsu/internal/domain"
)

// defaultPatterns are the confirmation-seeking phrasings, checked in order.
// Matching is against the latest assistant message only; user messages and
// older assistant turns never trigger confirmation.
var defaultPatterns = []string{
	`should i create this problem for you`,
	`does this sound good`,
	`ready to start with`,
	`shall i (generate|create)`,
	`want me to (create|generate)`,
	`sound good\?`,
	`would you like me to create`,
}

// Detector decides whether an assistant message is asking the user to
// confirm problem generation. The pattern list is pluggable so phrasing
// drift in prompts does not require code changes elsewhere.
type Detector struct {
	patterns []*regexp.Regexp
}

// NewDetector compiles the default pattern set.
func NewDetector() *Detector {
	return NewDetectorWithPatterns(defaultPatterns)
}

// NewDetectorWithPatterns compiles a custom pattern set. Patterns are
// matched case-insensitively, in order. Invalid patterns panic: the set is
// static configuration, not user input.
func NewDetectorWithPatterns(patterns []string) *Detector {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return &Detector{patterns: compiled}
}

// Match reports whether the given text asks for confirmation.
func (d *Detector) Match(text string) bool {
	for _, re := range d.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// NeedsConfirmation inspects the merged timeline and reports whether its
// latest assistant message is asking for confirmation, returning that
// message's index so callers can mark it. Messages from either stream
// count: the assistant may ask over voice as readily as over text.
func (d *Detector) NeedsConfirmation(timeline []domain.ChatMessage) (int, bool) {
	idx := LatestAssistant(timeline)
	if idx < 0 {
		return -1, false
	}
	return idx, d.Match(timeline[idx].Content)
}
