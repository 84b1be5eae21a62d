package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisReport is the cached output of the report synthesizer for one user.
// At most one row per user carries Latest = true; that row is the cache entry
// the selection query checks against ExpiresAt. Expired rows are not deleted,
// they are simply overwritten on the next successful refresh.
type AnalysisReport struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Partial unique index: concurrent first-time writes for the same user
	// conflict on it instead of both inserting a latest row.
	UserID uint `json:"user_id" gorm:"not null;uniqueIndex:idx_reports_user_latest,where:latest"`

	ReportData  datatypes.JSON `json:"report_data" gorm:"type:jsonb;not null"`
	GeneratedAt time.Time      `json:"generated_at" gorm:"not null"`
	ExpiresAt   time.Time      `json:"expires_at" gorm:"not null;index"`
	Latest      bool           `json:"latest" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AnalysisReport) TableName() string {
	return "analysis_reports"
}

func (r *AnalysisReport) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// AnalysisRun is the persisted record of one orchestrator invocation.
// The Redis ledger tracks which users a day-key has covered; these rows track
// what each invocation actually did, for operational reporting and export.
type AnalysisRun struct {
	ID     uint      `json:"id" gorm:"primaryKey"`
	JobKey string    `json:"job_key" gorm:"size:10;not null;index"`
	Status RunStatus `json:"status" gorm:"size:20;not null"`

	ProcessedCount int   `json:"processed_count" gorm:"default:0"`
	SucceededCount int   `json:"succeeded_count" gorm:"default:0"`
	FailedCount    int   `json:"failed_count" gorm:"default:0"`
	DurationMillis int64 `json:"duration_millis" gorm:"default:0"`

	StartedAt time.Time `json:"started_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (AnalysisRun) TableName() string {
	return "analysis_runs"
}
