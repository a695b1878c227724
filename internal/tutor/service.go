// Package tutor implements the Tutor API Gateway: prompt selection, the
// bounded retry/backoff loop against the LLM provider, structured output
// extraction, and the deterministic fallback for generation requests.
package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codejitsu/codejitsu/internal/config"
	"github.com/codejitsu/codejitsu/internal/domain"
	"github.com/codejitsu/codejitsu/internal/extract"
	"github.com/codejitsu/codejitsu/internal/llm"
	"github.com/codejitsu/codejitsu/internal/metrics"
	"github.com/codejitsu/codejitsu/internal/problems"
	"github.com/codejitsu/codejitsu/internal/prompt"
)

// Request is one tutor invocation: a user message plus whatever workspace
// and conversation context the client chose to send along.
type Request struct {
	Message        string `json:"message"`
	Mode           string `json:"mode,omitempty"`
	Context        string `json:"context,omitempty"`
	UserCode       string `json:"userCode,omitempty"`
	UserPseudoCode string `json:"userPseudoCode,omitempty"`
	UserDiagram    string `json:"userDiagram,omitempty"`
	ChatHistory    string `json:"chatHistory,omitempty"`

	Question *domain.Question `json:"question,omitempty"`
}

// Result is a successful tutor outcome. Exactly one of Question (generate
// mode) or Response (everything else) is the payload; SVG rides along when
// a non-generate reply happened to contain a diagram.
type Result struct {
	Mode     prompt.Mode
	Response string
	Question *domain.Question
	SVG      string
	Raw      string
	Fallback bool
	// FallbackNote explains why the fallback generator ran: provider outage
	// or a parse failure on otherwise-successful output.
	FallbackNote string
}

const (
	fallbackReasonOverloaded   = "overloaded"
	fallbackReasonParseFailure = "parse_failure"
)

// Service coordinates LLM calls for the tutor endpoint. It is also used
// internally by the session controller when a confirmation is accepted.
type Service struct {
	client *llm.Client
	cfg    *config.Config
	logger *slog.Logger
	retry  llm.Policy
}

// NewService creates a tutor service with the gateway retry policy:
// cfg.LLM.MaxAttempts attempts, exponential backoff from
// cfg.LLM.RetryBaseDelay, retrying only provider overload statuses.
func NewService(client *llm.Client, cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		cfg:    cfg,
		logger: logger,
		retry: llm.Policy{
			MaxAttempts: cfg.LLM.MaxAttempts,
			Backoff:     llm.ExponentialBackoff(cfg.LLM.RetryBaseDelay),
			Retryable:   llm.IsRetryable,
		},
	}
}

// SetSleeper overrides the retry sleep function. Intended for tests.
func (s *Service) SetSleeper(sleep func(context.Context, time.Duration) error) {
	s.retry.Sleep = sleep
}

// Chat runs one tutor request end to end.
func (s *Service) Chat(ctx context.Context, req Request) (*Result, error) {
	mode := prompt.InferMode(req.Mode, req.Message)
	system, user := prompt.Format(mode, req.Message, promptInput(req))

	start := time.Now()
	text, err := s.complete(ctx, mode, system, user, 0.7)
	if err != nil {
		metrics.ObserveLLMRequest(string(mode), "error", time.Since(start))

		// Retry budget exhausted on an overloaded provider. Generation
		// requests degrade to the offline fallback; everything else
		// propagates so the caller can report the outage.
		if mode == prompt.ModeGenerate && llm.IsRetryable(err) {
			metrics.IncFallback(fallbackReasonOverloaded)
			q := problems.Fallback(req.Message + " " + req.Context)
			s.logger.Warn("llm exhausted retries, serving fallback problem", "title", q.Title)
			return &Result{
				Mode:         mode,
				Question:     &q,
				Fallback:     true,
				FallbackNote: "The AI service is temporarily busy, so here's a classic problem instead.",
			}, nil
		}
		return nil, err
	}
	metrics.ObserveLLMRequest(string(mode), "ok", time.Since(start))

	if mode == prompt.ModeGenerate {
		return s.generateResult(req, text), nil
	}

	res := &Result{Mode: mode, Response: text, Raw: text}
	if svg, ok := extract.SVG(text); ok {
		res.SVG = svg
	}
	return res, nil
}

// Generate runs a generation request with the given conversation context as
// the model input. Used by the confirmation gate, where the paused voice
// history stands in for a typed message.
func (s *Service) Generate(ctx context.Context, conversationContext string) (*Result, error) {
	return s.Chat(ctx, Request{
		Message: "Based on our conversation, create the coding problem we discussed:\n\n" + conversationContext,
		Mode:    string(prompt.ModeGenerate),
		Context: conversationContext,
	})
}

// complete performs the LLM call under the gateway retry policy.
func (s *Service) complete(ctx context.Context, mode prompt.Mode, system, user string, temperature float64) (string, error) {
	var resp *llm.MessagesResponse
	attempt := 0
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.IncRetry(string(mode))
			s.logger.Warn("retrying llm request", "mode", mode, "attempt", attempt)
		}
		var callErr error
		resp, callErr = s.client.CreateMessage(ctx, llm.MessagesRequest{
			Model:       s.cfg.LLM.Model,
			MaxTokens:   s.cfg.LLM.MaxTokens,
			System:      system,
			Messages:    []llm.Message{{Role: "user", Content: user}},
			Temperature: temperature,
		})
		return callErr
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// generateResult parses a generation response, falling back to the offline
// generator when the model's output cannot be turned into a valid question.
func (s *Service) generateResult(req Request, text string) *Result {
	raw, ok := extract.JSON(text)
	metrics.IncExtraction("json", ok)
	if ok {
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err == nil {
			if q.ID == 0 {
				q.ID = int(time.Now().UnixMilli())
			}
			if validErr := q.Validate(); validErr == nil {
				return &Result{Mode: prompt.ModeGenerate, Question: &q, Raw: text}
			}
		}
	}

	// Parse failure, not an outage: flag the fallback with that explanation.
	metrics.IncFallback(fallbackReasonParseFailure)
	q := problems.Fallback(req.Message + " " + req.Context)
	s.logger.Warn("failed to parse generated problem, serving fallback", "title", q.Title)
	return &Result{
		Mode:         prompt.ModeGenerate,
		Question:     &q,
		Raw:          text,
		Fallback:     true,
		FallbackNote: "The generated problem couldn't be parsed, so here's a classic problem instead.",
	}
}

func promptInput(req Request) prompt.Input {
	in := prompt.Input{
		UserCode:       req.UserCode,
		UserPseudoCode: req.UserPseudoCode,
		UserDiagram:    req.UserDiagram,
		ChatHistory:    req.ChatHistory,
		Context:        req.Context,
	}
	if req.Question != nil {
		in.ProblemTitle = req.Question.Title
		in.ProblemDescription = req.Question.Description
		in.ProblemDifficulty = string(req.Question.Difficulty)
		in.ProblemCategory = req.Question.Category
	}
	return in
}

// ClassifyError maps a gateway failure onto an HTTP status and a message
// safe to show the student.
func ClassifyError(err error) (status int, message string) {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return 500, "LLM API key not configured"
	case errors.As(err, &apiErr) && apiErr.Overloaded():
		return 503, "AI service is temporarily overloaded, please try again"
	case errors.As(err, &apiErr) && apiErr.AuthFailure():
		return 500, fmt.Sprintf("authentication with AI service failed: %s", apiErr.Message)
	default:
		return 500, "failed to get response from AI service"
	}
}
