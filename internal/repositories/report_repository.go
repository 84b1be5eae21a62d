package repositories

import (
	"context"
	"time"

	"github.com/certlab/analysis-service/internal/models"
)

// ReportRepository is the durable store for synthesized analysis reports.
type ReportRepository interface {
	// UpsertLatest writes the user's current report. If a (user_id, latest)
	// row exists its payload and timestamps are overwritten in place,
	// otherwise a new latest row is inserted. This is the sole write path;
	// there is never more than one latest row per user.
	UpsertLatest(ctx context.Context, userID uint, reportData []byte, expiresAt time.Time) error

	// GetLatest returns the user's latest report, expired or not.
	// Returns gorm.ErrRecordNotFound when the user has no report.
	GetLatest(ctx context.Context, userID uint) (*models.AnalysisReport, error)
}

// RunRepository records orchestrator invocations for operational reporting.
type RunRepository interface {
	Create(ctx context.Context, run *models.AnalysisRun) error
	ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRun, error)
	GetLastRun(ctx context.Context) (*models.AnalysisRun, error)
}
