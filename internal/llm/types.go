package llm

import "fmt"

// Message is a single conversation turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesRequest is a request to the hosted Messages API: one system
// prompt, a bounded token budget and a synchronous response.
type MessagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ContentBlock is one block of a model response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MessagesResponse is the provider's synchronous completion response.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Text concatenates all text content blocks of the response.
func (r *MessagesResponse) Text() string {
	var out string
	for _, b := range r.Content {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

// ErrorResponse is the provider's error envelope.
type ErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a provider or transport failure with enough classification
// for the gateway retry and error-taxonomy logic.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("llm request failed: %s", e.Message)
	}
	return fmt.Sprintf("llm request failed with status %d: %s", e.StatusCode, e.Message)
}

// Overloaded reports whether the provider signalled temporary
// unavailability (529 "overloaded" or 503 "unavailable").
func (e *APIError) Overloaded() bool {
	return e.StatusCode == StatusOverloaded || e.StatusCode == StatusUnavailable
}

// AuthFailure reports whether the provider rejected our credentials.
// Authentication failures are configuration errors and are never retried.
func (e *APIError) AuthFailure() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

const (
	// StatusOverloaded is the provider-specific "overloaded" status.
	StatusOverloaded = 529
	// StatusUnavailable is plain HTTP service-unavailable.
	StatusUnavailable = 503
)
