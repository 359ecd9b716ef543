// README: Scoring handlers: score one reservation, describe the served bundle.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelsegments/internal/modules/scoring"
	"hotelsegments/internal/modules/segmentation"
)

// BundleSource yields the bundle currently served.
type BundleSource interface {
	Bundle(ctx context.Context) (*segmentation.Bundle, error)
}

type ScoreHandler struct {
	scorer  scoring.Scorer
	bundles BundleSource
}

// NewScoreHandler builds the handler. bundles may be nil when scoring is
// delegated to a remote endpoint; GET /api/v1/model then answers 404.
func NewScoreHandler(scorer scoring.Scorer, bundles BundleSource) *ScoreHandler {
	return &ScoreHandler{scorer: scorer, bundles: bundles}
}

// Score handles POST /api/v1/score.
func (h *ScoreHandler) Score(c *gin.Context) {
	var req scoring.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.scorer.Score(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// Model handles GET /api/v1/model.
func (h *ScoreHandler) Model(c *gin.Context) {
	if h.bundles == nil {
		writeError(c, http.StatusNotFound, "no local bundle")
		return
	}
	b, err := h.bundles.Bundle(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b.Metadata())
}
