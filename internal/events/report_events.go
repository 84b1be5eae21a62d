package events

import (
	"time"
)

// EventType represents different types of analysis pipeline events
type EventType string

const (
	// Report events
	EventReportReady  EventType = "report.ready"
	EventReportFailed EventType = "report.failed"

	// Run events
	EventRunCompleted EventType = "run.completed"
)

// ReportEvent is the base event structure for all analysis pipeline events
type ReportEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Version   string         `json:"version"`
	Data      interface{}    `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ReportReadyEvent is published after a user's report has been written.
type ReportReadyEvent struct {
	UserID            uint      `json:"user_id"`
	ReadinessScore    float64   `json:"readiness_score"`
	CertificationName string    `json:"certification_name"`
	GeneratedAt       time.Time `json:"generated_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// ReportFailedEvent is published when one user's pipeline fails. UserFailure
// distinguishes failures rooted in the user's data or the synthesizer output
// from infrastructure errors.
type ReportFailedEvent struct {
	UserID      uint   `json:"user_id"`
	Reason      string `json:"reason"`
	UserFailure bool   `json:"user_failure"`
}

// RunCompletedEvent summarizes one orchestrator invocation.
type RunCompletedEvent struct {
	JobKey         string `json:"job_key"`
	Status         string `json:"status"`
	ProcessedCount int    `json:"processed_count"`
	SucceededCount int    `json:"succeeded_count"`
	FailedCount    int    `json:"failed_count"`
	DurationMillis int64  `json:"duration_millis"`
}
