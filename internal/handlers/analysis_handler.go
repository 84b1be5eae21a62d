package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/certlab/analysis-service/internal/services"
	"github.com/certlab/analysis-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// AnalysisHandler exposes the scheduler-facing surface of the refresh
// pipeline: the trigger endpoint, a status probe and the run-history export.
type AnalysisHandler struct {
	refreshService services.RefreshService
	exportService  services.ExportService
	logger         utils.Logger
}

func NewAnalysisHandler(refreshService services.RefreshService, exportService services.ExportService, logger utils.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		refreshService: refreshService,
		exportService:  exportService,
		logger:         logger,
	}
}

// CronAuthMiddleware authenticates the external scheduler via a shared-secret
// bearer token.
func CronAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or missing bearer token",
			})
			return
		}
		c.Next()
	}
}

// RefreshAnalysis runs one orchestrator invocation. Invoked by the external
// scheduler on a fixed interval.
func (h *AnalysisHandler) RefreshAnalysis(c *gin.Context) {
	result, err := h.refreshService.Run(c.Request.Context())
	if err != nil {
		h.logger.LogError(err, "Analysis refresh run failed")
		c.JSON(http.StatusInternalServerError, RefreshResponse{
			Success:   false,
			Message:   "analysis refresh aborted: " + err.Error(),
			Completed: false,
			Timestamp: time.Now(),
		})
		return
	}

	message := fmt.Sprintf("processed %d users (%d succeeded, %d failed) in %s",
		result.ProcessedCount, result.SucceededCount, result.FailedCount, result.Duration.Round(time.Millisecond))
	if !result.Completed() {
		message += "; budget exhausted, remaining users deferred to the next invocation"
	}

	c.JSON(http.StatusOK, RefreshResponse{
		Success:   true,
		Message:   message,
		Completed: result.Completed(),
		Timestamp: time.Now(),
	})
}

// GetStatus reports the eligible-user backlog and the last recorded run.
func (h *AnalysisHandler) GetStatus(c *gin.Context) {
	status, err := h.refreshService.Status(c.Request.Context())
	if err != nil {
		h.logger.LogError(err, "Failed to load pipeline status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to load pipeline status",
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

// ExportRuns streams the recent run history as an XLSX workbook.
func (h *AnalysisHandler) ExportRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "limit must be an integer",
			})
			return
		}
		limit = parsed
	}

	data, err := h.exportService.ExportRunHistory(c.Request.Context(), limit)
	if err != nil {
		h.logger.LogError(err, "Failed to export run history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to export run history",
		})
		return
	}

	filename := fmt.Sprintf("analysis-runs-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
