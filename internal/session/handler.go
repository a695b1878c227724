package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/codejitsu/codejitsu/internal/api"
	"github.com/codejitsu/codejitsu/internal/domain"
	"github.com/codejitsu/codejitsu/internal/identity"
	"github.com/codejitsu/codejitsu/internal/problems"
	"github.com/codejitsu/codejitsu/internal/store"
	"github.com/codejitsu/codejitsu/internal/tutor"
	"github.com/codejitsu/codejitsu/internal/voice"
	"github.com/go-chi/chi/v5"
)

const (
	maxRequestBodySize = 1 << 20
	keepaliveInterval  = 10 * time.Second
)

// TutorService is the slice of the tutor gateway the session layer needs.
type TutorService interface {
	Generator
	Chat(ctx context.Context, req tutor.Request) (*tutor.Result, error)
}

// Handler exposes the per-user session endpoints.
type Handler struct {
	manager *Manager
	svc     TutorService
	repo    store.Repository
}

// NewHandler creates a session HTTP handler.
func NewHandler(manager *Manager, svc TutorService, repo store.Repository) *Handler {
	return &Handler{manager: manager, svc: svc, repo: repo}
}

// RegisterRoutes registers session routes (requires identity middleware).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Get("/stream", h.HandleStream)
		r.Post("/question", h.HandleSetQuestion)
		r.Post("/reset", h.HandleReset)
		r.Post("/workspace", h.HandleWorkspace)
		r.Post("/message", h.HandleMessage)
		r.Post("/confirm", h.HandleConfirm)
		r.Post("/voice/start", h.HandleVoiceStart)
		r.Post("/voice/pause", h.HandleVoicePause)
		r.Post("/voice/resume", h.HandleVoiceResume)
		r.Post("/voice/end", h.HandleVoiceEnd)
		r.Post("/voice/inject", h.HandleVoiceInject)
		r.Get("/drafts/{questionID}", h.HandleGetDraft)
		r.Put("/drafts/{questionID}", h.HandlePutDraft)
	})
}

func (h *Handler) session(r *http.Request) (*Session, string, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		return nil, "", false
	}
	return h.manager.Get(userID), userID, true
}

// HandleGet handles GET /api/session.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	api.JSON(w, http.StatusOK, sess.Snapshot())
}

// HandleSetQuestion handles POST /api/session/question. Accepts either a
// catalog question ID or a full question object (the generated kind).
func (h *Handler) HandleSetQuestion(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req struct {
		QuestionID int              `json:"questionId"`
		Question   *domain.Question `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var q *domain.Question
	switch {
	case req.Question != nil:
		if err := req.Question.Validate(); err != nil {
			api.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		q = req.Question
	case req.QuestionID != 0:
		catalogQ, found := problems.ByID(req.QuestionID)
		if !found {
			api.Error(w, http.StatusNotFound, fmt.Sprintf("question %d not found", req.QuestionID))
			return
		}
		q = catalogQ
	default:
		api.Error(w, http.StatusBadRequest, "questionId or question is required")
		return
	}

	sess.SetQuestion(*q)
	api.JSON(w, http.StatusOK, sess.Snapshot())
}

// HandleReset handles POST /api/session/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	workspace := sess.ResetWorkspace()
	api.JSON(w, http.StatusOK, map[string]any{"success": true, "workspace": workspace})
}

// HandleWorkspace handles POST /api/session/workspace.
func (h *Handler) HandleWorkspace(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var update WorkspaceUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	workspace, err := sess.UpdateWorkspace(update)
	if err != nil {
		if errors.Is(err, ErrStaleQuestion) {
			api.Error(w, http.StatusConflict, err.Error())
			return
		}
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"success": true, "workspace": workspace})
}

// HandleMessage handles POST /api/session/message: a text chat turn run
// through the tutor gateway with the session's stored context.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req struct {
		Message string `json:"message"`
		Mode    string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	tutorReq, err := sess.TutorRequest(req.Message, req.Mode)
	if err != nil {
		if errors.Is(err, ErrAwaitingConfirmation) {
			api.Error(w, http.StatusConflict, err.Error())
			return
		}
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Chat(r.Context(), tutorReq)
	if err != nil {
		status, message := tutor.ClassifyError(err)
		api.JSON(w, status, map[string]any{"success": false, "error": message})
		return
	}

	sess.RecordResult(res)
	api.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": res.Response,
		"question": res.Question,
		"svg":      res.SVG,
		"fallback": res.Fallback,
		"note":     res.FallbackNote,
		"session":  sess.Snapshot(),
	})
}

// HandleConfirm handles POST /api/session/confirm.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req struct {
		Accepted bool `json:"accepted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := sess.Confirm(r.Context(), req.Accepted)
	if err != nil {
		if errors.Is(err, ErrNoPendingConfirmation) {
			api.Error(w, http.StatusConflict, err.Error())
			return
		}
		status, message := tutor.ClassifyError(err)
		api.JSON(w, status, map[string]any{"success": false, "error": message})
		return
	}

	out := map[string]any{"success": true, "accepted": req.Accepted, "session": sess.Snapshot()}
	if res != nil {
		out["question"] = res.Question
		out["fallback"] = res.Fallback
		out["note"] = res.FallbackNote
	}
	api.JSON(w, http.StatusOK, out)
}

func (h *Handler) voiceOp(w http.ResponseWriter, r *http.Request, op func(*Session, context.Context) error) {
	sess, _, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := op(sess, r.Context()); err != nil {
		switch {
		case errors.Is(err, ErrVoiceUnavailable):
			api.Error(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, voice.ErrInvalidTransition), errors.Is(err, voice.ErrNotActive):
			api.Error(w, http.StatusConflict, err.Error())
		default:
			api.Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"success": true, "state": sess.Snapshot().VoiceState})
}

// HandleVoiceStart handles POST /api/session/voice/start.
func (h *Handler) HandleVoiceStart(w http.ResponseWriter, r *http.Request) {
	h.voiceOp(w, r, func(s *Session, ctx context.Context) error { return s.StartVoice(ctx) })
}

// HandleVoicePause handles POST /api/session/voice/pause.
func (h *Handler) HandleVoicePause(w http.ResponseWriter, r *http.Request) {
	h.voiceOp(w, r, func(s *Session, ctx context.Context) error { return s.PauseVoice(ctx) })
}

// HandleVoiceResume handles POST /api/session/voice/resume.
func (h *Handler) HandleVoiceResume(w http.ResponseWriter, r *http.Request) {
	h.voiceOp(w, r, func(s *Session, ctx context.Context) error { return s.ResumeVoice(ctx) })
}

// HandleVoiceEnd handles POST /api/session/voice/end.
func (h *Handler) HandleVoiceEnd(w http.ResponseWriter, r *http.Request) {
	h.voiceOp(w, r, func(s *Session, ctx context.Context) error { return s.EndVoice(ctx) })
}

// HandleVoiceInject handles POST /api/session/voice/inject.
func (h *Handler) HandleVoiceInject(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := sess.InjectVoiceContext(r.Context(), req.Context); err != nil {
		switch {
		case errors.Is(err, ErrVoiceUnavailable):
			api.Error(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, voice.ErrNotActive):
			api.Error(w, http.StatusConflict, err.Error())
		default:
			api.Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleStream handles GET /api/session/stream: an SSE feed of session
// events with a keepalive ping.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	sess, userID, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	subID, events := sess.Subscribe()
	defer sess.Unsubscribe(subID)

	// Multiple tabs share one session; the tab ID tells the client which of
	// its streams this is.
	connected := fmt.Sprintf(`{"user_id":%q,"username":%q,"session_id":%q}`,
		userID,
		identity.UsernameFromContext(r.Context()),
		identity.SessionIDFromContext(r.Context()),
	)
	if err := writeSSE(w, "connected", connected); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := writeSSE(w, ev.Type, string(data)); err != nil {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// HandleGetDraft handles GET /api/session/drafts/{questionID}.
func (h *Handler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	questionID, err := strconv.Atoi(chi.URLParam(r, "questionID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid question id")
		return
	}

	draft, err := h.repo.GetDraft(r.Context(), userID, questionID)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to load draft")
		return
	}
	if draft == nil {
		api.Error(w, http.StatusNotFound, "draft not found")
		return
	}
	api.JSON(w, http.StatusOK, draft)
}

// HandlePutDraft handles PUT /api/session/drafts/{questionID}.
func (h *Handler) HandlePutDraft(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := h.session(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	questionID, err := strconv.Atoi(chi.URLParam(r, "questionID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid question id")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req struct {
		PseudoCode string `json:"pseudoCode"`
		PythonCode string `json:"pythonCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := &domain.Draft{
		UserID:     userID,
		QuestionID: questionID,
		PseudoCode: req.PseudoCode,
		PythonCode: req.PythonCode,
	}
	if err := h.repo.SaveDraft(r.Context(), draft); err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to save draft")
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
