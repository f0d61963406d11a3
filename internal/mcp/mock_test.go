package mcp

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ghinsight/ghinsight/internal/collector"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/storage"
)

// mockCollectionService simulates the orchestrator
type mockCollectionService struct {
	mock.Mock
}

func (m *mockCollectionService) Collect(ctx context.Context, projectID string, options domain.CollectionOptions) (*domain.AggregateResult, error) {
	args := m.Called(ctx, projectID, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregateResult), args.Error(1)
}

func (m *mockCollectionService) Estimate(ctx context.Context, projectID string, options domain.CollectionOptions) (*collector.Feasibility, error) {
	args := m.Called(ctx, projectID, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*collector.Feasibility), args.Error(1)
}

// mockStore simulates run storage
type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveRun(ctx context.Context, result *domain.AggregateResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*domain.AggregateResult, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregateResult), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, project string, limit int) ([]*storage.RunSummary, error) {
	args := m.Called(ctx, project, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.RunSummary), args.Error(1)
}

func (m *mockStore) LatestRun(ctx context.Context, project string) (*domain.AggregateResult, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregateResult), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// mockLimits simulates the rate budget's live limit check
type mockLimits struct {
	mock.Mock
}

func (m *mockLimits) CheckCurrentLimits(ctx context.Context) (*domain.RateLimitSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateLimitSnapshot), args.Error(1)
}
