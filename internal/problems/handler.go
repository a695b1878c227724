package problems

import (
	"net/http"
	"strconv"

	"github.com/codejitsu/codejitsu/internal/api"
	"github.com/go-chi/chi/v5"
)

// Handler serves the built-in question catalog.
type Handler struct{}

// NewHandler creates a catalog HTTP handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes registers catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/questions", h.HandleList)
	r.Get("/api/questions/{id}", h.HandleGet)
}

// HandleList handles GET /api/questions.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, map[string]any{"questions": Catalog})
}

// HandleGet handles GET /api/questions/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid question id")
		return
	}
	q, ok := ByID(id)
	if !ok {
		api.Error(w, http.StatusNotFound, "question not found")
		return
	}
	api.JSON(w, http.StatusOK, q)
}
