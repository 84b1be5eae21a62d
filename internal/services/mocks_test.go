package services

import (
	"context"
	"sync"
	"time"

	"github.com/certlab/analysis-service/internal/models"
	"github.com/certlab/analysis-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindEligibleUsers(ctx context.Context, excluding map[uint]struct{}) ([]uint, error) {
	args := m.Called(ctx, excluding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockUserRepository) CountEligibleUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockAttemptRepository is a mock implementation of AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) GetHistory(ctx context.Context, userID uint) ([]*models.QuizAttempt, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetGroupedAggregates(ctx context.Context, userID uint) (*repositories.GroupedAggregates, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.GroupedAggregates), args.Error(1)
}

// MockReportRepository is a mock implementation of ReportRepository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) UpsertLatest(ctx context.Context, userID uint, reportData []byte, expiresAt time.Time) error {
	args := m.Called(ctx, userID, reportData, expiresAt)
	return args.Error(0)
}

func (m *MockReportRepository) GetLatest(ctx context.Context, userID uint) (*models.AnalysisReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalysisReport), args.Error(1)
}

// MockRunRepository is a mock implementation of RunRepository
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Create(ctx context.Context, run *models.AnalysisRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AnalysisRun), args.Error(1)
}

func (m *MockRunRepository) GetLastRun(ctx context.Context) (*models.AnalysisRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalysisRun), args.Error(1)
}

// MockLedger is a mock implementation of ledger.ProcessedLedger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetProcessed(ctx context.Context, jobKey string) (map[uint]struct{}, error) {
	args := m.Called(ctx, jobKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]struct{}), args.Error(1)
}

func (m *MockLedger) MarkProcessed(ctx context.Context, jobKey string, userIDs []uint) error {
	args := m.Called(ctx, jobKey, userIDs)
	return args.Error(0)
}

// MockNotificationService is a mock implementation of NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) NotifyReportReady(ctx context.Context, email, username string, readinessScore float64, certificationName string) error {
	args := m.Called(ctx, email, username, readinessScore, certificationName)
	return args.Error(0)
}

// stubSynthesizer returns a canned report, or an error for chosen user
// summaries, without touching the network.
type stubSynthesizer struct {
	report *SynthesizedReport
	err    error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, summary *PerformanceSummary) (*SynthesizedReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

// fakeClock is a manually advanced clock for budget tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
