package postgres

import (
	"context"
	"time"

	"github.com/certlab/analysis-service/internal/models"
	"github.com/certlab/analysis-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportPostgreSQL struct {
	db *gorm.DB
}

func NewReportPostgreSQL(db *gorm.DB) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db}
}

// UpsertLatest writes the user's latest report in a single INSERT ... ON
// CONFLICT statement targeting the partial unique index on (user_id) WHERE
// latest. Two overlapping writes for the same user serialize on the index,
// so exactly one latest row survives either way.
func (r ReportPostgreSQL) UpsertLatest(ctx context.Context, userID uint, reportData []byte, expiresAt time.Time) error {
	now := time.Now()
	report := models.AnalysisReport{
		UserID:      userID,
		ReportData:  datatypes.JSON(reportData),
		GeneratedAt: now,
		ExpiresAt:   expiresAt,
		Latest:      true,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Name: "latest"}, Value: true},
		}},
		DoUpdates: clause.Assignments(map[string]any{
			"report_data":  datatypes.JSON(reportData),
			"generated_at": now,
			"expires_at":   expiresAt,
			"updated_at":   now,
		}),
	}).Create(&report).Error
}

func (r ReportPostgreSQL) GetLatest(ctx context.Context, userID uint) (*models.AnalysisReport, error) {
	var report models.AnalysisReport
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND latest = ?", userID, true).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}
