package postgres

import (
	"context"

	"github.com/certlab/analysis-service/internal/models"
	"github.com/certlab/analysis-service/internal/repositories"
	"gorm.io/gorm"
)

type RunPostgreSQL struct {
	db *gorm.DB
}

func NewRunPostgreSQL(db *gorm.DB) repositories.RunRepository {
	return &RunPostgreSQL{db: db}
}

func (r RunPostgreSQL) Create(ctx context.Context, run *models.AnalysisRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r RunPostgreSQL) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	var runs []*models.AnalysisRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r RunPostgreSQL) GetLastRun(ctx context.Context) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
