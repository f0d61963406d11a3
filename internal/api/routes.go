package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(RequestLogger(logger))

	// Health check and Prometheus metrics
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(handler.recorder.Handler()))

	// API v1
	v1 := router.Group("/api/v1")
	{
		collections := v1.Group("/collections")
		{
			collections.POST("", handler.StartCollection)
			collections.POST("/estimate", handler.EstimateCollection)
		}

		runs := v1.Group("/runs")
		{
			runs.GET("", handler.ListRuns)
			runs.GET("/:id", handler.GetRun)
			runs.GET("/:id/metrics", handler.GetRunMetrics)
		}

		v1.GET("/projects/:project/metrics", handler.GetProjectMetrics)
		v1.GET("/limits", handler.GetLimits)
	}

	return router
}
