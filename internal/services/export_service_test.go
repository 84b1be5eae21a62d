package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/certlab/analysis-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportService_ExportRunHistory(t *testing.T) {
	runs := &MockRunRepository{}
	service := NewExportService(runs, testLogger())

	runs.On("ListRecent", mock.Anything, 100).Return([]*models.AnalysisRun{
		{
			JobKey:         "2026-08-28",
			Status:         models.RunPartial,
			ProcessedCount: 10,
			SucceededCount: 9,
			FailedCount:    1,
			DurationMillis: 45000,
			StartedAt:      time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC),
		},
		{
			JobKey:         "2026-08-27",
			Status:         models.RunCompleted,
			ProcessedCount: 42,
			SucceededCount: 42,
			StartedAt:      time.Date(2026, 8, 27, 3, 0, 0, 0, time.UTC),
		},
	}, nil)

	data, err := service.ExportRunHistory(context.Background(), 0)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Analysis Runs")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Job Key", rows[0][0])
	assert.Equal(t, "2026-08-28", rows[1][0])
	assert.Equal(t, "partial", rows[1][2])
	assert.Equal(t, "10", rows[1][3])
	assert.Equal(t, "2026-08-27", rows[2][0])
	assert.Equal(t, "completed", rows[2][2])
}

func TestExportService_ExportRunHistory_RepositoryError(t *testing.T) {
	runs := &MockRunRepository{}
	service := NewExportService(runs, testLogger())

	runs.On("ListRecent", mock.Anything, 25).Return(nil, errors.New("db down"))

	data, err := service.ExportRunHistory(context.Background(), 25)

	assert.Error(t, err)
	assert.Nil(t, data)
}
