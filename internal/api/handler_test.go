package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ghinsight/ghinsight/internal/apperrors"
	"github.com/ghinsight/ghinsight/internal/collector"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/observability"
	"github.com/ghinsight/ghinsight/internal/storage"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixtures struct {
	collector *mockCollectionService
	store     *mockStore
	limits    *mockLimits
}

func newTestRouter(t *testing.T) (*gin.Engine, *fixtures) {
	t.Helper()
	f := &fixtures{
		collector: new(mockCollectionService),
		store:     new(mockStore),
		limits:    new(mockLimits),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(f.collector, f.store, f.limits, observability.NewRecorder(), logger)
	return SetupRoutes(handler, logger), f
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// errorBody is the error envelope every failure response carries
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func storedResult(runID, project string) *domain.AggregateResult {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.AggregateResult{
		Raw: domain.RawData{
			Repositories: []domain.Repository{{ID: 1, Name: "api", FullName: project + "/api"}},
		},
		Indexes: &domain.OptimalIndexes{},
		Metrics: domain.Metrics{
			ProjectSummary: domain.ProjectSummary{TotalRepositories: 1, TotalIssues: 3},
		},
		Metadata: domain.Metadata{
			Collection: domain.CollectionMetadata{
				ProjectID:         project,
				Options:           domain.DefaultOptions(),
				RepositoriesFound: 1,
				RepositoriesDone:  1,
			},
			Execution: domain.ExecutionMetadata{
				RunID:      runID,
				StartedAt:  started,
				FinishedAt: started.Add(2 * time.Second),
				DurationMS: 2000,
			},
		},
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	w := doRequest(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStartCollection(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	result := storedResult("run-1", "acme")
	f.collector.On("Collect", mock.Anything, "acme", domain.DefaultOptions()).Return(result, nil)
	f.store.On("SaveRun", mock.Anything, result).Return(nil)

	w := doRequest(t, router, http.MethodPost, "/api/v1/collections", gin.H{"project": "acme"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data domain.AggregateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.Data.Metadata.Execution.RunID)
	assert.Equal(t, "acme", resp.Data.Metadata.Collection.ProjectID)
	f.collector.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestStartCollectionCustomOptions(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	want := domain.CollectionOptions{IncludeIssues: true, MaxIssues: 50}
	f.collector.On("Collect", mock.Anything, "acme", want).Return(storedResult("run-1", "acme"), nil)
	f.store.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	body := gin.H{
		"project": "acme",
		"options": gin.H{"include_issues": true, "max_issues": 50},
	}
	w := doRequest(t, router, http.MethodPost, "/api/v1/collections", body)

	assert.Equal(t, http.StatusOK, w.Code)
	f.collector.AssertExpectations(t)
}

func TestStartCollectionRequiresProject(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	w := doRequest(t, router, http.MethodPost, "/api/v1/collections", gin.H{"options": gin.H{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, w).Error.Code)
	f.collector.AssertNotCalled(t, "Collect")
}

func TestStartCollectionInfeasibleBudget(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.collector.On("Collect", mock.Anything, "acme", domain.DefaultOptions()).
		Return(nil, apperrors.NewBudgetInfeasibleError(120, 10))

	w := doRequest(t, router, http.MethodPost, "/api/v1/collections", gin.H{"project": "acme"})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "BUDGET_INFEASIBLE", decodeError(t, w).Error.Code)
	f.store.AssertNotCalled(t, "SaveRun")
}

func TestStartCollectionStorageFailureStillReturnsResult(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	result := storedResult("run-1", "acme")
	f.collector.On("Collect", mock.Anything, "acme", domain.DefaultOptions()).Return(result, nil)
	f.store.On("SaveRun", mock.Anything, result).Return(errors.New("disk full"))

	w := doRequest(t, router, http.MethodPost, "/api/v1/collections", gin.H{"project": "acme"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data domain.AggregateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.Data.Metadata.Execution.RunID)
}

func TestEstimateCollection(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.collector.On("Estimate", mock.Anything, "acme", domain.DefaultOptions()).Return(&collector.Feasibility{
		ProjectID:    "acme",
		Repositories: 2,
		Estimate:     domain.CallEstimate{EstimatedCalls: 80, Feasible: true, RecommendedBatchSize: 2},
		Limits: &domain.RateLimitSnapshot{
			Core: domain.RateLimitUsage{Endpoint: domain.EndpointCore, Limit: 5000, Remaining: 4500},
		},
	}, nil)

	w := doRequest(t, router, http.MethodPost, "/api/v1/collections/estimate", gin.H{"project": "acme"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data collector.Feasibility `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Repositories)
	assert.Equal(t, 80, resp.Data.Estimate.EstimatedCalls)
	assert.True(t, resp.Data.Estimate.Feasible)
	assert.Equal(t, 4500, resp.Data.Limits.Core.Remaining)
}

func TestEstimateCollectionUnknownProject(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.collector.On("Estimate", mock.Anything, "ghost", domain.DefaultOptions()).
		Return(nil, apperrors.NewNotFoundError("repositories for ghost"))

	w := doRequest(t, router, http.MethodPost, "/api/v1/collections/estimate", gin.H{"project": "ghost"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Error.Code)
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	runs := []*storage.RunSummary{
		{RunID: "run-2", ProjectID: "acme", Issues: 5},
		{RunID: "run-1", ProjectID: "acme", Issues: 3},
	}
	f.store.On("ListRuns", mock.Anything, "", 20).Return(runs, nil)

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []*storage.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "run-2", resp.Data[0].RunID)
	assert.Equal(t, 5, resp.Data[0].Issues)
}

func TestListRunsQueryParameters(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.store.On("ListRuns", mock.Anything, "acme", 5).Return([]*storage.RunSummary{}, nil)

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs?project=acme&limit=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	f.store.AssertExpectations(t)
}

func TestListRunsBadLimitFallsBack(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.store.On("ListRuns", mock.Anything, "", 20).Return([]*storage.RunSummary{}, nil)

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs?limit=bogus", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	f.store.AssertExpectations(t)
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.store.On("GetRun", mock.Anything, "run-1").Return(storedResult("run-1", "acme"), nil)

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs/run-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data domain.AggregateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.Data.Metadata.Execution.RunID)
	require.Len(t, resp.Data.Raw.Repositories, 1)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.store.On("GetRun", mock.Anything, "ghost").Return(nil, apperrors.NewNotFoundError("run ghost"))

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs/ghost", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Error.Code)
}

func TestGetRunMetrics(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.store.On("GetRun", mock.Anything, "run-1").Return(storedResult("run-1", "acme"), nil)

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs/run-1/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data domain.Metrics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.ProjectSummary.TotalRepositories)
	assert.Equal(t, 3, resp.Data.ProjectSummary.TotalIssues)
}

func TestGetProjectMetrics(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.store.On("LatestRun", mock.Anything, "acme").Return(storedResult("run-7", "acme"), nil)

	w := doRequest(t, router, http.MethodGet, "/api/v1/projects/acme/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			RunID     string         `json:"run_id"`
			ProjectID string         `json:"project_id"`
			Metrics   domain.Metrics `json:"metrics"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-7", resp.Data.RunID)
	assert.Equal(t, "acme", resp.Data.ProjectID)
	assert.Equal(t, 3, resp.Data.Metrics.ProjectSummary.TotalIssues)
}

func TestGetLimits(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.limits.On("CheckCurrentLimits", mock.Anything).Return(&domain.RateLimitSnapshot{
		Core:    domain.RateLimitUsage{Endpoint: domain.EndpointCore, Limit: 5000, Remaining: 4321},
		GraphQL: domain.RateLimitUsage{Endpoint: domain.EndpointGraphQL, Limit: 5000, Remaining: 5000},
	}, nil)

	w := doRequest(t, router, http.MethodGet, "/api/v1/limits", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data domain.RateLimitSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4321, resp.Data.Core.Remaining)
}

func TestGetLimitsFailure(t *testing.T) {
	t.Parallel()

	router, f := newTestRouter(t)
	f.limits.On("CheckCurrentLimits", mock.Anything).Return(nil, errors.New("connection reset"))

	w := doRequest(t, router, http.MethodGet, "/api/v1/limits", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w).Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	w := doRequest(t, router, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ghinsight_collection_duration_seconds")
	assert.Contains(t, w.Body.String(), "ghinsight_repository_failures_total")
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	w := doRequest(t, router, http.MethodOptions, "/api/v1/runs", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
