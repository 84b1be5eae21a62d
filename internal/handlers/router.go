package handlers

import (
	"net/http"
	"time"

	"github.com/certlab/analysis-service/internal/services"
	"github.com/certlab/analysis-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	analysisHandler *AnalysisHandler
	cronSecret      string
}

func NewHandlerManager(
	refreshService services.RefreshService,
	exportService services.ExportService,
	cronSecret string,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		analysisHandler: NewAnalysisHandler(refreshService, exportService, logger),
		cronSecret:      cronSecret,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// Scheduler-facing routes, shared-secret bearer auth
	internal := router.Group("/api/v1/internal/analysis")
	internal.Use(CronAuthMiddleware(hm.cronSecret))
	{
		internal.POST("/refresh", hm.analysisHandler.RefreshAnalysis)
		internal.GET("/status", hm.analysisHandler.GetStatus)
		internal.GET("/runs/export", hm.analysisHandler.ExportRuns)
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}
