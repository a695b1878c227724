// Package diagram implements the Diagram API Gateway: single-attempt LLM
// calls that must yield SVG markup. A missing SVG is a reportable condition
// surfaced to the UI, never retried and never replaced by a placeholder.
package diagram

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/codejitsu/codejitsu/internal/api"
	"github.com/codejitsu/codejitsu/internal/config"
	"github.com/codejitsu/codejitsu/internal/extract"
	"github.com/codejitsu/codejitsu/internal/llm"
	"github.com/codejitsu/codejitsu/internal/metrics"
	"github.com/codejitsu/codejitsu/internal/prompt"
	"github.com/go-chi/chi/v5"
)

const maxRequestBodySize = 1 << 20

// Handler exposes the diagram endpoints.
type Handler struct {
	client *llm.Client
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandler creates a diagram HTTP handler.
func NewHandler(client *llm.Client, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, cfg: cfg, logger: logger}
}

// RegisterRoutes registers diagram routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/generate-diagram", h.HandleGenerateDiagram)
	r.Post("/api/generate-svg", h.HandleGenerateSVG)
}

// DiagramRequest is the body of POST /api/generate-diagram.
type DiagramRequest struct {
	Problem struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Difficulty  string `json:"difficulty"`
		Category    string `json:"category"`
	} `json:"problem"`
	CurrentWork struct {
		Code            string `json:"code"`
		PseudoCode      string `json:"pseudoCode"`
		ExistingDiagram string `json:"existingDiagram"`
	} `json:"currentWork"`
	ConversationHistory string `json:"conversationHistory"`
	Timestamp           string `json:"timestamp"`
}

// HandleGenerateDiagram handles POST /api/generate-diagram. One attempt, no
// retry: a degraded diagram is worth less than a fast error the user can
// act on.
func (h *Handler) HandleGenerateDiagram(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req DiagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.JSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	h.logger.Info("diagram request",
		"problem", req.Problem.Title,
		"history_length", len(req.ConversationHistory),
	)

	system, user := prompt.FormatDiagram(prompt.DiagramInput{
		ProblemTitle:        req.Problem.Title,
		ProblemDescription:  req.Problem.Description,
		ProblemDifficulty:   req.Problem.Difficulty,
		Code:                req.CurrentWork.Code,
		PseudoCode:          req.CurrentWork.PseudoCode,
		ExistingDiagram:     req.CurrentWork.ExistingDiagram,
		ConversationHistory: req.ConversationHistory,
	})

	text, err := h.complete(r.Context(), system, user, 0.2)
	if err != nil {
		status, message := tutorStatus(err)
		h.logger.Error("diagram generation failed", "error", err)
		api.JSON(w, status, map[string]any{
			"success":   false,
			"error":     message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	svg, ok := extract.SVG(text)
	metrics.IncExtraction("svg", ok)
	if !ok {
		// No fallback diagram exists; report the full response so the UI
		// can show what the model said instead.
		api.JSON(w, http.StatusBadRequest, map[string]any{
			"success":      false,
			"error":        "No SVG diagram was generated in the response",
			"fullResponse": text,
		})
		return
	}

	api.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"svg":     svg,
		"context": map[string]string{
			"problem":   req.Problem.Title,
			"timestamp": req.Timestamp,
		},
	})
}

// SVGRequest is the body of POST /api/generate-svg.
type SVGRequest struct {
	ConversationContext string `json:"conversationContext"`
	DiagramRequest      string `json:"diagramRequest"`
	CurrentProblem      string `json:"currentProblem"`
}

// HandleGenerateSVG handles POST /api/generate-svg, the narrower variant
// driven by an explicit in-chat diagram request.
func (h *Handler) HandleGenerateSVG(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req SVGRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.JSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	system, user := prompt.FormatSVG(req.ConversationContext, req.DiagramRequest, req.CurrentProblem)

	text, err := h.complete(r.Context(), system, user, 0.3)
	if err != nil {
		h.logger.Error("svg generation failed", "error", err)
		api.JSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to generate SVG diagram",
		})
		return
	}

	svg, ok := extract.SVG(text)
	metrics.IncExtraction("svg", ok)
	if !ok {
		api.JSON(w, http.StatusOK, map[string]any{
			"success":  false,
			"error":    "No SVG diagram generated",
			"response": text,
		})
		return
	}

	api.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"svg":      svg,
		"response": text,
	})
}

func (h *Handler) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	resp, err := h.client.CreateMessage(ctx, llm.MessagesRequest{
		Model:       h.cfg.LLM.Model,
		MaxTokens:   h.cfg.LLM.MaxTokens,
		System:      system,
		Messages:    []llm.Message{{Role: "user", Content: user}},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func tutorStatus(err error) (int, string) {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) && apiErr.Overloaded() {
		return http.StatusServiceUnavailable, "AI service is temporarily overloaded, please try again"
	}
	return http.StatusInternalServerError, err.Error()
}
