package tutor

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/codejitsu/codejitsu/internal/api"
	"github.com/go-chi/chi/v5"
)

// maxRequestBodySize bounds tutor request bodies (1MB).
const maxRequestBodySize = 1 << 20

// Handler exposes the tutor gateway over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a tutor HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers tutor routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/tutor", h.HandleTutor)
}

// envelope is the JSON envelope every tutor response uses. No exceptions
// cross the API boundary: every failure path is a success:false envelope.
type envelope struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Data     any    `json:"data,omitempty"`
	Question any    `json:"question,omitempty"`
	SVG      string `json:"svg,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Note     string `json:"note,omitempty"`
	Raw      string `json:"raw,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HandleTutor handles POST /api/tutor.
func (h *Handler) HandleTutor(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.JSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
		return
	}
	if req.Message == "" {
		api.JSON(w, http.StatusBadRequest, envelope{Success: false, Error: "message is required"})
		return
	}

	slog.Info("tutor request", "mode", req.Mode, "message_length", len(req.Message))

	res, err := h.svc.Chat(r.Context(), req)
	if err != nil {
		status, message := ClassifyError(err)
		slog.Error("tutor request failed", "error", err, "status", status)
		api.JSON(w, status, envelope{Success: false, Error: message})
		return
	}

	out := envelope{
		Success:  true,
		Response: res.Response,
		SVG:      res.SVG,
		Fallback: res.Fallback,
		Note:     res.FallbackNote,
		Raw:      res.Raw,
	}
	if res.Question != nil {
		out.Question = res.Question
		out.Data = res.Question
	}
	api.JSON(w, http.StatusOK, out)
}
