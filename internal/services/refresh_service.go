package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/certlab/analysis-service/internal/config"
	"github.com/certlab/analysis-service/internal/events"
	"github.com/certlab/analysis-service/internal/ledger"
	"github.com/certlab/analysis-service/internal/models"
	"github.com/certlab/analysis-service/internal/repositories"
	"gorm.io/gorm"
)

// RefreshService is the batch orchestrator of the analysis pipeline. Each Run
// selects the users whose report is missing or expired, drives the per-user
// pipeline (aggregate, synthesize, store, notify) in fixed-size concurrent
// batches, and records progress in a day-keyed ledger so a follow-up
// invocation on the same day picks up where this one stopped.
type RefreshService interface {
	Run(ctx context.Context) (*RefreshResult, error)
	Status(ctx context.Context) (*PipelineStatus, error)
}

// RefreshResult reports what one invocation did. The counts feed operational
// logging and alerting; they carry no correctness guarantees.
type RefreshResult struct {
	JobKey         string           `json:"job_key"`
	Status         models.RunStatus `json:"status"`
	ProcessedCount int              `json:"processed_count"`
	SucceededCount int              `json:"succeeded_count"`
	FailedCount    int              `json:"failed_count"`
	Duration       time.Duration    `json:"duration"`
}

// Completed reports whether the eligible population was exhausted.
func (r *RefreshResult) Completed() bool {
	return r.Status == models.RunCompleted
}

type PipelineStatus struct {
	EligibleUsers int                 `json:"eligible_users"`
	LastRun       *models.AnalysisRun `json:"last_run,omitempty"`
}

const jobKeyLayout = "2006-01-02"

type refreshService struct {
	users       repositories.UserRepository
	attempts    repositories.AttemptRepository
	reports     repositories.ReportRepository
	runs        repositories.RunRepository
	processed   ledger.ProcessedLedger
	aggregator  AggregatorService
	synthesizer SynthesizerService
	notifier    NotificationService
	publisher   events.EventPublisher
	cfg         config.AnalysisConfig
	logger      *slog.Logger

	// now is swappable so budget behavior is testable without sleeping.
	now func() time.Time
}

func NewRefreshService(
	users repositories.UserRepository,
	attempts repositories.AttemptRepository,
	reports repositories.ReportRepository,
	runs repositories.RunRepository,
	processed ledger.ProcessedLedger,
	aggregator AggregatorService,
	synthesizer SynthesizerService,
	notifier NotificationService,
	publisher events.EventPublisher,
	cfg config.AnalysisConfig,
	logger *slog.Logger,
) RefreshService {
	return &refreshService{
		users:       users,
		attempts:    attempts,
		reports:     reports,
		runs:        runs,
		processed:   processed,
		aggregator:  aggregator,
		synthesizer: synthesizer,
		notifier:    notifier,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *refreshService) Run(ctx context.Context) (*RefreshResult, error) {
	start := s.now()
	jobKey := start.Format(jobKeyLayout)
	log := s.logger.With("job_key", jobKey)

	result := &RefreshResult{JobKey: jobKey, Status: models.RunCompleted}

	alreadyProcessed, err := s.processed.GetProcessed(ctx, jobKey)
	if err != nil {
		return s.failRun(ctx, result, start, fmt.Errorf("%w: %v", ErrSelectionFailed, err))
	}

	eligible, err := s.users.FindEligibleUsers(ctx, alreadyProcessed)
	if err != nil {
		return s.failRun(ctx, result, start, fmt.Errorf("%w: %v", ErrSelectionFailed, err))
	}

	log.Info("Starting analysis refresh run",
		"eligible_users", len(eligible),
		"already_processed", len(alreadyProcessed),
		"batch_size", s.cfg.BatchSize)

	for offset := 0; offset < len(eligible); offset += s.cfg.BatchSize {
		if s.budgetExceeded(start) {
			result.Status = models.RunPartial
			break
		}

		end := offset + s.cfg.BatchSize
		if end > len(eligible) {
			end = len(eligible)
		}
		batch := eligible[offset:end]

		succeeded, failed := s.runBatch(ctx, batch)
		result.ProcessedCount += len(batch)
		result.SucceededCount += succeeded
		result.FailedCount += failed

		// Every batch member is recorded, failures included: a user whose
		// pipeline failed is not retried again under this day-key. Ledger
		// write failures are tolerated; the worst case is a redundant
		// reprocess by a later invocation, which the upsert absorbs.
		if err := s.processed.MarkProcessed(ctx, jobKey, batch); err != nil {
			log.Error("Failed to record processed batch", "error", err, "batch_size", len(batch))
		}

		if end < len(eligible) && s.budgetExceeded(start) {
			result.Status = models.RunPartial
			break
		}
	}

	result.Duration = s.now().Sub(start)

	log.Info("Analysis refresh run finished",
		"status", result.Status,
		"processed", result.ProcessedCount,
		"succeeded", result.SucceededCount,
		"failed", result.FailedCount,
		"duration", result.Duration)

	s.recordRun(ctx, result, start)
	s.publishRunEvent(ctx, result)

	return result, nil
}

// budgetExceeded is the coarse inter-batch check: elapsed wall-clock time
// against the configured maximum minus a safety buffer. Pipelines already in
// flight are never cancelled; the only lever is not starting the next batch.
func (s *refreshService) budgetExceeded(start time.Time) bool {
	return s.now().Sub(start) >= s.cfg.MaxRun-s.cfg.BudgetBuffer
}

// runBatch dispatches the per-user pipeline for every batch member at once
// and waits for all of them to settle. One user's failure never affects
// another's outcome.
func (s *refreshService) runBatch(ctx context.Context, batch []uint) (succeeded, failed int) {
	var wg sync.WaitGroup
	outcomes := make([]error, len(batch))

	for i, userID := range batch {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			outcomes[i] = s.processUser(ctx, userID)
		}(i, userID)
	}
	wg.Wait()

	for i, err := range outcomes {
		if err != nil {
			failed++
			// Failures in the user's own data or the synthesizer output are
			// expected churn; anything else deserves an error-level entry.
			if IsUserFailure(err) {
				s.logger.Warn("User analysis pipeline failed", "user_id", batch[i], "error", err)
			} else {
				s.logger.Error("User analysis pipeline failed", "user_id", batch[i], "error", err)
			}
			s.publishReportFailedEvent(ctx, batch[i], err)
			continue
		}
		succeeded++
	}
	return succeeded, failed
}

// publishReportFailedEvent mirrors the report.ready event for users whose
// pipeline failed, so downstream consumers see both outcomes. Best-effort,
// like all publishing.
func (s *refreshService) publishReportFailedEvent(ctx context.Context, userID uint, cause error) {
	event := &events.ReportEvent{
		ID:        watermill.NewUUID(),
		Type:      events.EventReportFailed,
		Timestamp: s.now(),
		Source:    "analysis-service",
		Version:   "1.0",
		Data: events.ReportFailedEvent{
			UserID:      userID,
			Reason:      cause.Error(),
			UserFailure: IsUserFailure(cause),
		},
	}
	if err := s.publisher.PublishReportEvent(ctx, event); err != nil {
		s.logger.Warn("Report failure event publish failed", "user_id", userID, "error", err)
	}
}

// processUser runs the full pipeline for one user: aggregate the attempt
// history, synthesize a report, persist it, then fire best-effort
// notifications. Any returned error is an isolated per-user failure.
func (s *refreshService) processUser(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	history, err := s.attempts.GetHistory(ctx, userID)
	if err != nil {
		return fmt.Errorf("load attempt history: %w", err)
	}

	aggregates, err := s.attempts.GetGroupedAggregates(ctx, userID)
	if err != nil {
		return fmt.Errorf("load aggregates: %w", err)
	}

	summary, err := s.aggregator.BuildSummary(history, aggregates)
	if err != nil {
		return err
	}

	report, err := s.synthesizer.Synthesize(ctx, summary)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(s.cfg.ReportTTL)
	if err := s.reports.UpsertLatest(ctx, userID, report.Payload, expiresAt); err != nil {
		return fmt.Errorf("store report: %w", err)
	}

	// The report is durable from here on. Notification and event publishing
	// are independent best-effort channels; their failures are logged only.
	score := report.ReadinessScore()
	if score == 0 {
		score = summary.CurrentScore
	}

	if err := s.notifier.NotifyReportReady(ctx, user.Email, user.FullName, score, user.CertificationName); err != nil {
		s.logger.Warn("Report notification failed", "user_id", userID, "error", err)
	}

	event := &events.ReportEvent{
		ID:        watermill.NewUUID(),
		Type:      events.EventReportReady,
		Timestamp: s.now(),
		Source:    "analysis-service",
		Version:   "1.0",
		Data: events.ReportReadyEvent{
			UserID:            userID,
			ReadinessScore:    score,
			CertificationName: user.CertificationName,
			GeneratedAt:       s.now(),
			ExpiresAt:         expiresAt,
		},
	}
	if err := s.publisher.PublishReportEvent(ctx, event); err != nil {
		s.logger.Warn("Report event publish failed", "user_id", userID, "error", err)
	}

	return nil
}

func (s *refreshService) failRun(ctx context.Context, result *RefreshResult, start time.Time, err error) (*RefreshResult, error) {
	result.Status = models.RunFailed
	result.Duration = s.now().Sub(start)
	s.logger.Error("Analysis refresh run aborted", "job_key", result.JobKey, "error", err)
	s.recordRun(ctx, result, start)
	return result, err
}

func (s *refreshService) recordRun(ctx context.Context, result *RefreshResult, start time.Time) {
	run := &models.AnalysisRun{
		JobKey:         result.JobKey,
		Status:         result.Status,
		ProcessedCount: result.ProcessedCount,
		SucceededCount: result.SucceededCount,
		FailedCount:    result.FailedCount,
		DurationMillis: result.Duration.Milliseconds(),
		StartedAt:      start,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Error("Failed to persist run record", "job_key", result.JobKey, "error", err)
	}
}

func (s *refreshService) publishRunEvent(ctx context.Context, result *RefreshResult) {
	event := &events.ReportEvent{
		ID:        watermill.NewUUID(),
		Type:      events.EventRunCompleted,
		Timestamp: s.now(),
		Source:    "analysis-service",
		Version:   "1.0",
		Data: events.RunCompletedEvent{
			JobKey:         result.JobKey,
			Status:         string(result.Status),
			ProcessedCount: result.ProcessedCount,
			SucceededCount: result.SucceededCount,
			FailedCount:    result.FailedCount,
			DurationMillis: result.Duration.Milliseconds(),
		},
	}
	if err := s.publisher.PublishReportEvent(ctx, event); err != nil {
		s.logger.Warn("Run event publish failed", "job_key", result.JobKey, "error", err)
	}
}

func (s *refreshService) Status(ctx context.Context) (*PipelineStatus, error) {
	count, err := s.users.CountEligibleUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count eligible users: %w", err)
	}

	status := &PipelineStatus{EligibleUsers: count}

	lastRun, err := s.runs.GetLastRun(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load last run: %w", err)
	}
	if err == nil {
		status.LastRun = lastRun
	}

	return status, nil
}
