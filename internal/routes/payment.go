package routes

import (
	"signalcatch/internal/handlers"
	"signalcatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes sets up all routes related to the payment flow
func SetupPaymentRoutes(r *gin.Engine, deps *Deps) {
	h := handlers.NewPaymentHandler(deps.Payments)

	limiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             10,
	})
	session := middleware.SessionAuth(deps.DB)

	payment := r.Group("/api/payment", limiter)
	{
		payment.POST("/checkout", session, h.Checkout)
		payment.POST("/confirm", session, h.Confirm)
		payment.GET("/order/:id", session, h.Order)
	}

	withdrawals := r.Group("/api/withdrawals", limiter, session)
	{
		withdrawals.POST("", h.SubmitWithdrawal)
		withdrawals.GET("", h.ListWithdrawals)
	}

	// Scheduler-only entry points, guarded by the shared cron secret
	cron := r.Group("/api/payment", middleware.SecretAuth(deps.Cfg.CronSecret))
	{
		cron.GET("/check", h.Check)
		cron.POST("/process-withdrawals", h.ProcessWithdrawals)
		cron.POST("/expire-orders", h.ExpireOrders)
	}
}
