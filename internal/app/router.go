// internal/app/router.go
package app

import (
	businessHandler "queueline-service/internal/handlers/business"
	queueHandler "queueline-service/internal/handlers/queue"
	wsHandler "queueline-service/internal/handlers/websocket"
	"queueline-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	QueueHandler    *queueHandler.QueueHandler
	BusinessHandler *businessHandler.BusinessHandler
	WSHandler       *wsHandler.WebSocketHandler
	AuthMiddleware  *middleware.AuthMiddleware
	JoinLimiter     *middleware.RateLimiter
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Metrics ====================
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Businesses ====================
	businesses := api.Group("/businesses")
	{
		businesses.GET("", h.BusinessHandler.List)
		businesses.GET("/:id", h.BusinessHandler.Get)
	}

	// ==================== Public Queue Routes ====================
	queuePublic := api.Group("/queue")
	{
		queuePublic.POST("/join", h.JoinLimiter.Middleware(), h.QueueHandler.Join)
		queuePublic.GET("/status/:id", h.QueueHandler.GetStatus)
		queuePublic.GET("/business/:businessId", h.QueueHandler.GetActive)
	}

	// ==================== Operator Queue Routes ====================
	queueOperator := api.Group("/queue")
	queueOperator.Use(h.AuthMiddleware.Auth())
	{
		queueOperator.GET("/business/:businessId/pending",
			h.AuthMiddleware.RequireBusinessParam("businessId"), h.QueueHandler.GetPending)
		queueOperator.PUT("/:id/approve", h.QueueHandler.Approve)
		queueOperator.PUT("/:id/start-service", h.QueueHandler.StartService)
		queueOperator.PUT("/:id/serve", h.QueueHandler.Serve)
		queueOperator.DELETE("/:id", h.QueueHandler.Remove)
	}

	// ==================== Dashboard ====================
	dashboard := api.Group("/dashboard")
	dashboard.Use(h.AuthMiddleware.Auth())
	{
		dashboard.GET("/:businessId", h.AuthMiddleware.RequireBusinessParam("businessId"), h.BusinessHandler.Dashboard)
	}

	api.GET("/ws/stats", h.AuthMiddleware.Auth(), h.WSHandler.GetStats)
}
