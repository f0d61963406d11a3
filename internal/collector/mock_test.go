package collector

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ghinsight/ghinsight/internal/domain"
)

// mockFetcher simulates the gateway without real API calls
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) ListRepositoriesByOrg(ctx context.Context, org string) ([]domain.Repository, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Repository), args.Error(1)
}

func (m *mockFetcher) ListRepositoriesByUser(ctx context.Context, user string) ([]domain.Repository, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Repository), args.Error(1)
}

func (m *mockFetcher) GetRepository(ctx context.Context, owner, name string) (domain.Repository, error) {
	args := m.Called(ctx, owner, name)
	return args.Get(0).(domain.Repository), args.Error(1)
}

func (m *mockFetcher) ListIssues(ctx context.Context, owner, repo string, limit int, since, until time.Time) ([]domain.Issue, error) {
	args := m.Called(ctx, owner, repo, limit, since, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

func (m *mockFetcher) ListIssueComments(ctx context.Context, owner, repo string, number, limit int) ([]domain.Comment, error) {
	args := m.Called(ctx, owner, repo, number, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Comment), args.Error(1)
}

func (m *mockFetcher) ListPullRequests(ctx context.Context, owner, repo string, limit int, since, until time.Time) ([]domain.PullRequest, error) {
	args := m.Called(ctx, owner, repo, limit, since, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PullRequest), args.Error(1)
}

func (m *mockFetcher) ListPullRequestReviews(ctx context.Context, owner, repo string, number int) ([]domain.Review, error) {
	args := m.Called(ctx, owner, repo, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockFetcher) ListPullRequestReviewComments(ctx context.Context, owner, repo string, number, limit int) ([]domain.ReviewComment, error) {
	args := m.Called(ctx, owner, repo, number, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewComment), args.Error(1)
}

func (m *mockFetcher) ListCommits(ctx context.Context, owner, repo string, limit int, since, until time.Time) ([]domain.Commit, error) {
	args := m.Called(ctx, owner, repo, limit, since, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Commit), args.Error(1)
}

func (m *mockFetcher) RateLimits(ctx context.Context) (*domain.RateLimitSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateLimitSnapshot), args.Error(1)
}

func (m *mockFetcher) LastCoreRate() domain.RateLimitUsage {
	args := m.Called()
	return args.Get(0).(domain.RateLimitUsage)
}

func (m *mockFetcher) CallsMade() int {
	args := m.Called()
	return args.Int(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func generousLimits() *domain.RateLimitSnapshot {
	return &domain.RateLimitSnapshot{
		Core:    domain.RateLimitUsage{Endpoint: domain.EndpointCore, Limit: 5000, Remaining: 4500},
		GraphQL: domain.RateLimitUsage{Endpoint: domain.EndpointGraphQL, Limit: 5000, Remaining: 5000},
	}
}
