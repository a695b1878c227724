// Package conversation merges voice and text message streams into one
// timeline and detects confirmation-seeking assistant messages.
package conversation

import (
	"sort"

	"github.com/codejitsu/codejitsu/internal/domain"
)

// Merge combines the text chat stream and the voice transcript into a
// single timeline ordered by timestamp, each entry tagged with its origin.
// Ordering is by logical timestamp, not arrival: a fast text reply may sort
// before a voice transcript that resolved later. System entries from the
// voice transcript are dropped; they are provider plumbing, not dialogue.
func Merge(text []domain.ChatMessage, voice []domain.ConversationMessage) []domain.ChatMessage {
	merged := make([]domain.ChatMessage, 0, len(text)+len(voice))
	merged = append(merged, text...)

	for _, msg := range voice {
		if msg.Role == "system" {
			continue
		}
		merged = append(merged, domain.ChatMessage{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
			Source:    domain.SourceVoice,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// LatestAssistant returns the index of the most recent assistant message
// in the timeline, or -1 if there is none.
func LatestAssistant(timeline []domain.ChatMessage) int {
	for i := len(timeline) - 1; i >= 0; i-- {
		if timeline[i].Role == "assistant" {
			return i
		}
	}
	return -1
}
