package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// RunHandler handles POST /api/run. Real code execution is not wired up;
// the endpoint returns a simulated result so the editor's run button has
// something honest to show.
func RunHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string `json:"code"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		Error(w, http.StatusBadRequest, "code is required")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"simulated": true,
		"output":    "Code execution is simulated. Talk through your solution with the tutor to verify it.",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
