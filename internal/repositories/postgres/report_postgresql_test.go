package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/certlab/analysis-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("set TEST_DATABASE_URL to run Postgres integration tests")
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AnalysisReport{}))
	require.NoError(t, db.Exec("DELETE FROM analysis_reports").Error)
	return db
}

func countLatestRows(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.AnalysisReport{}).
		Where("user_id = ? AND latest = ?", userID, true).
		Count(&count).Error)
	return count
}

func TestReportPostgreSQL_UpsertLatest_SecondWriteOverwrites(t *testing.T) {
	db := testDB(t)
	repo := NewReportPostgreSQL(db)
	ctx := context.Background()

	first := []byte(`{"overview":{"readiness_score":55}}`)
	second := []byte(`{"overview":{"readiness_score":70}}`)
	laterExpiry := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Millisecond)

	require.NoError(t, repo.UpsertLatest(ctx, 42, first, time.Now().Add(24*time.Hour)))
	require.NoError(t, repo.UpsertLatest(ctx, 42, second, laterExpiry))

	assert.EqualValues(t, 1, countLatestRows(t, db, 42))

	report, err := repo.GetLatest(ctx, 42)
	require.NoError(t, err)
	assert.JSONEq(t, string(second), string(report.ReportData))
	assert.WithinDuration(t, laterExpiry, report.ExpiresAt, time.Second)
}

func TestReportPostgreSQL_UpsertLatest_ConcurrentFirstWrites(t *testing.T) {
	db := testDB(t)
	repo := NewReportPostgreSQL(db)
	ctx := context.Background()

	// Overlapping invocations can upsert the same user twice; both writes
	// must land on the single latest row.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte(`{"overview":{"readiness_score":60}}`)
			errs[i] = repo.UpsertLatest(ctx, 7, payload, time.Now().Add(24*time.Hour))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, countLatestRows(t, db, 7))
}

func TestReportPostgreSQL_GetLatest_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewReportPostgreSQL(db)

	_, err := repo.GetLatest(context.Background(), 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
