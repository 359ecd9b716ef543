// README: Assistant chat handler (free-text reservation -> segment prediction).
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hotelsegments/internal/modules/assistant"
)

// Processor answers one chat message.
type Processor interface {
	Process(ctx context.Context, msg string) (assistant.Response, error)
}

type AIHandler struct {
	assistant Processor
	timeout   time.Duration
}

func NewAIHandler(p Processor) *AIHandler {
	return &AIHandler{assistant: p, timeout: 75 * time.Second}
}

// Process handles POST /api/process.
func (h *AIHandler) Process(c *gin.Context) {
	var req assistant.Message
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.UserMessage = strings.TrimSpace(req.UserMessage)
	if req.UserMessage == "" {
		writeError(c, http.StatusBadRequest, "missing userMessage")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp, err := h.assistant.Process(ctx, req.UserMessage)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}
