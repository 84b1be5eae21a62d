package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/certlab/analysis-service/internal/models"
	"github.com/certlab/analysis-service/internal/services"
	"github.com/certlab/analysis-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-cron-secret"

// MockRefreshService is a mock implementation of services.RefreshService
type MockRefreshService struct {
	mock.Mock
}

func (m *MockRefreshService) Run(ctx context.Context) (*services.RefreshResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RefreshResult), args.Error(1)
}

func (m *MockRefreshService) Status(ctx context.Context) (*services.PipelineStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PipelineStatus), args.Error(1)
}

// MockExportService is a mock implementation of services.ExportService
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) ExportRunHistory(ctx context.Context, limit int) ([]byte, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func setupRouter(refresh *MockRefreshService, export *MockExportService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	manager := NewHandlerManager(refresh, export, testSecret, utils.NewDefaultLogger())
	manager.SetupRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRefreshAnalysis_RejectsMissingToken(t *testing.T) {
	refresh := &MockRefreshService{}
	router := setupRouter(refresh, &MockExportService{})

	w := doRequest(router, http.MethodPost, "/api/v1/internal/analysis/refresh", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	refresh.AssertNotCalled(t, "Run", mock.Anything)
}

func TestRefreshAnalysis_RejectsWrongToken(t *testing.T) {
	refresh := &MockRefreshService{}
	router := setupRouter(refresh, &MockExportService{})

	w := doRequest(router, http.MethodPost, "/api/v1/internal/analysis/refresh", "wrong-secret")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshAnalysis_ReturnsRunSummary(t *testing.T) {
	refresh := &MockRefreshService{}
	refresh.On("Run", mock.Anything).Return(&services.RefreshResult{
		JobKey:         "2026-08-28",
		Status:         models.RunPartial,
		ProcessedCount: 10,
		SucceededCount: 9,
		FailedCount:    1,
		Duration:       42 * time.Second,
	}, nil)
	router := setupRouter(refresh, &MockExportService{})

	w := doRequest(router, http.MethodPost, "/api/v1/internal/analysis/refresh", testSecret)

	require.Equal(t, http.StatusOK, w.Code)

	var resp RefreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.Completed)
	assert.Contains(t, resp.Message, "processed 10 users")
	assert.Contains(t, resp.Message, "budget exhausted")
}

func TestRefreshAnalysis_InfrastructureFailureIs500(t *testing.T) {
	refresh := &MockRefreshService{}
	refresh.On("Run", mock.Anything).Return(nil, errors.New("selection query failed"))
	router := setupRouter(refresh, &MockExportService{})

	w := doRequest(router, http.MethodPost, "/api/v1/internal/analysis/refresh", testSecret)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp RefreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.False(t, resp.Completed)
}

func TestGetStatus(t *testing.T) {
	refresh := &MockRefreshService{}
	refresh.On("Status", mock.Anything).Return(&services.PipelineStatus{EligibleUsers: 5}, nil)
	router := setupRouter(refresh, &MockExportService{})

	w := doRequest(router, http.MethodGet, "/api/v1/internal/analysis/status", testSecret)

	require.Equal(t, http.StatusOK, w.Code)

	var status services.PipelineStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 5, status.EligibleUsers)
}

func TestExportRuns(t *testing.T) {
	export := &MockExportService{}
	export.On("ExportRunHistory", mock.Anything, 10).Return([]byte("xlsx-bytes"), nil)
	router := setupRouter(&MockRefreshService{}, export)

	w := doRequest(router, http.MethodGet, "/api/v1/internal/analysis/runs/export?limit=10", testSecret)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "analysis-runs-")
	assert.Equal(t, "xlsx-bytes", w.Body.String())
}

func TestExportRuns_InvalidLimit(t *testing.T) {
	export := &MockExportService{}
	router := setupRouter(&MockRefreshService{}, export)

	w := doRequest(router, http.MethodGet, "/api/v1/internal/analysis/runs/export?limit=abc", testSecret)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	export.AssertNotCalled(t, "ExportRunHistory", mock.Anything, mock.Anything)
}
