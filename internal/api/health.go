package api

import (
	"context"
	"net/http"
	"time"

	"github.com/codejitsu/codejitsu/internal/config"
	"github.com/codejitsu/codejitsu/internal/store"
	"github.com/go-chi/chi/v5"
)

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	repo store.Repository
	cfg  *config.Config
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.Repository, cfg *config.Config) *HealthHandler {
	return &HealthHandler{repo: repo, cfg: cfg}
}

// RegisterHealth registers the health route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.HandleHealth)
}

// HandleHealth handles GET /api/health.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	status := http.StatusOK
	if err := h.repo.Ping(ctx); err != nil {
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}

	JSON(w, status, map[string]any{
		"status":        dbStatus,
		"llm_enabled":   h.cfg.LLMEnabled(),
		"voice_enabled": h.cfg.VoiceEnabled(),
		"time":          time.Now().UTC().Format(time.RFC3339),
	})
}
