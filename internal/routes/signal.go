package routes

import (
	"signalcatch/internal/handlers"
	"signalcatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupSignalRoutes sets up all routes related to signal statistics
func SetupSignalRoutes(r *gin.Engine, deps *Deps) {
	h := handlers.NewSignalHandler(deps.Stats)

	// Visitors may browse without a session; authenticated members see
	// the full feed, everyone else only what has aged past the delay.
	signals := r.Group("/api", middleware.OptionalSession(deps.DB))
	{
		signals.POST("/signal-statistics", h.TagStatistics)
		signals.POST("/signals", h.Signals)
		signals.POST("/kol-ranking", h.KolRanking)
	}
}
