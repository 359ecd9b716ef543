// README: Training-run registry handler.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelsegments/internal/modules/runs"
)

type RunSource interface {
	Latest(ctx context.Context) (runs.Run, []runs.Profile, error)
}

type RunsHandler struct {
	runs RunSource
}

func NewRunsHandler(src RunSource) *RunsHandler {
	return &RunsHandler{runs: src}
}

// Latest handles GET /api/v1/runs/latest.
func (h *RunsHandler) Latest(c *gin.Context) {
	run, profiles, err := h.runs.Latest(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"run": run, "profiles": profiles})
}
