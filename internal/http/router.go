// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hotelsegments/internal/http/handlers"
	"hotelsegments/internal/http/middleware"
	"hotelsegments/internal/modules/scoring"
)

// RouterDeps are the services behind the routes. Bundles, Assistant and Runs
// are optional; their routes are only registered when set.
type RouterDeps struct {
	Scorer      scoring.Scorer
	Bundles     handlers.BundleSource
	Assistant   handlers.Processor
	Runs        handlers.RunSource
	CORSOrigins []string
	Log         *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log), middleware.CORS(deps.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	v1 := r.Group("/api/v1")
	scoreHandler := handlers.NewScoreHandler(deps.Scorer, deps.Bundles)
	v1.POST("/score", scoreHandler.Score)
	v1.GET("/model", scoreHandler.Model)
	if deps.Runs != nil {
		v1.GET("/runs/latest", handlers.NewRunsHandler(deps.Runs).Latest)
	}

	if deps.Assistant != nil {
		r.POST("/api/process", handlers.NewAIHandler(deps.Assistant).Process)
	}
	return r
}
