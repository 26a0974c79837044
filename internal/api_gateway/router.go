package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bank-reconciliation-service/internal/api_gateway/handler"
	"github.com/bank-reconciliation-service/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		reconciliations := v1.Group("/reconciliations")
		{
			reconciliations.POST("", reconciliationHandler.Reconcile)
			reconciliations.GET("", reconciliationHandler.GetPeriod)
			reconciliations.GET("/:id/matches", reconciliationHandler.GetMatches)
			reconciliations.GET("/:id/unmatched", reconciliationHandler.GetUnmatched)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
