package handlers

import (
	"time"

	"signalcatch/internal/middleware"
	"signalcatch/internal/models"
	"signalcatch/internal/signalstats"

	"github.com/gin-gonic/gin"
)

// SignalHandler exposes the read-only statistics queries.
type SignalHandler struct {
	stats *signalstats.Service
}

// NewSignalHandler creates the handler around the statistics service.
func NewSignalHandler(stats *signalstats.Service) *SignalHandler {
	return &SignalHandler{stats: stats}
}

// TagStatisticsRequest is the body for POST /api/signal-statistics
type TagStatisticsRequest struct {
	Type   models.ProviderType `json:"type" binding:"required"`
	Filter struct {
		EntityID string `json:"entityId"`
	} `json:"filter"`
}

// TagStatistics returns grouped rise/fall aggregates per dimension entity
func (h *SignalHandler) TagStatistics(c *gin.Context) {
	var req TagStatisticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "InvalidParams", err.Error())
		return
	}

	stats, err := h.stats.TagStatistics(req.Type, req.Filter.EntityID)
	if err != nil {
		failErrAs(c, err, "InvalidParams")
		return
	}
	ok(c, stats)
}

// SignalsRequest is the body for POST /api/signals
type SignalsRequest struct {
	Page   int                      `json:"page"`
	Filter signalstats.SignalFilter `json:"filter"`
}

// Signals lists signals newest-first. Session is optional: anonymous
// callers only see signals past the monetization delay.
func (h *SignalHandler) Signals(c *gin.Context) {
	var req SignalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "InvalidParams", err.Error())
		return
	}

	authed := middleware.CurrentProfile(c) != nil
	page, err := h.stats.SignalsPaginated(req.Page, req.Filter, authed)
	if err != nil {
		failErrAs(c, err, "InvalidParams")
		return
	}
	ok(c, page)
}

// KolRankingRequest is the body for POST /api/kol-ranking
type KolRankingRequest struct {
	WindowDays int `json:"windowDays"`
	Limit      int `json:"limit"`
}

// KolRanking ranks tracked accounts by win rate over the given window
func (h *SignalHandler) KolRanking(c *gin.Context) {
	var req KolRankingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "InvalidParams", err.Error())
		return
	}
	if req.WindowDays <= 0 {
		req.WindowDays = 7
	}

	ranks, err := h.stats.KolRanking(time.Duration(req.WindowDays)*24*time.Hour, req.Limit)
	if err != nil {
		failErrAs(c, err, "InvalidParams")
		return
	}
	ok(c, ranks)
}
