package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/certlab/analysis-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// ExportService renders operational data as spreadsheets for offline review.
type ExportService interface {
	// ExportRunHistory writes the most recent analysis runs to an XLSX
	// workbook and returns the serialized file.
	ExportRunHistory(ctx context.Context, limit int) ([]byte, error)
}

type exportService struct {
	runs   repositories.RunRepository
	logger *slog.Logger
}

func NewExportService(runs repositories.RunRepository, logger *slog.Logger) ExportService {
	return &exportService{
		runs:   runs,
		logger: logger,
	}
}

const defaultExportLimit = 100

func (s *exportService) ExportRunHistory(ctx context.Context, limit int) ([]byte, error) {
	if limit <= 0 || limit > 1000 {
		limit = defaultExportLimit
	}

	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load run history: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Analysis Runs"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Job Key", "Started At", "Status", "Processed", "Succeeded", "Failed", "Duration (ms)",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write Excel header: %w", err)
		}
	}

	for i, run := range runs {
		row := i + 2
		values := []any{
			run.JobKey,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			string(run.Status),
			run.ProcessedCount,
			run.SucceededCount,
			run.FailedCount,
			run.DurationMillis,
		}
		for j, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+j, row)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write Excel row %d: %w", row, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize Excel file: %w", err)
	}

	s.logger.Debug("Exported run history", "rows", len(runs))
	return buf.Bytes(), nil
}
