package routes

import (
	"signalcatch/internal/handlers"
	"signalcatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAddressPoolRoutes sets up all routes related to receiving address management
func SetupAddressPoolRoutes(r *gin.Engine, deps *Deps) {
	h := handlers.NewAddressPoolHandler(deps.DB)

	pool := r.Group("/api/address-pool", middleware.SecretAuth(deps.Cfg.AdminSecret))
	{
		pool.GET("", h.List)
		pool.POST("", h.Register)
		pool.PUT("/:id", h.Toggle)
		pool.POST("/generate", h.Generate)
	}
}
