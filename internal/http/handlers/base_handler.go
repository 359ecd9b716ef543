// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelsegments/internal/modules/assistant"
	"hotelsegments/internal/modules/bundlestore"
	"hotelsegments/internal/modules/encoder"
	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/modules/runs"
	"hotelsegments/internal/modules/scoring"
	"hotelsegments/internal/modules/segmentation"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto status codes.
func writeServiceError(c *gin.Context, err error) {
	var (
		unknown      *encoder.UnknownCategoryError
		schema       *reservation.SchemaError
		incompatible *segmentation.BundleIncompatibleError
		upstream     *assistant.UpstreamError
		remote       *scoring.RemoteError
	)
	switch {
	case errors.As(err, &unknown):
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: unknown.Field, Value: unknown.Value})
	case errors.As(err, &schema), errors.Is(err, assistant.ErrEmptyMessage):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, bundlestore.ErrNotFound), errors.Is(err, runs.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.As(err, &remote) && remote.Status == http.StatusUnprocessableEntity:
		writeError(c, http.StatusUnprocessableEntity, remote.Body)
	case errors.As(err, &upstream), errors.As(err, &remote):
		writeError(c, http.StatusBadGateway, err.Error())
	case errors.As(err, &incompatible):
		writeError(c, http.StatusInternalServerError, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
