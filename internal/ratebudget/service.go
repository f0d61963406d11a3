// Package ratebudget sizes collection runs against the remote API budget:
// it reads current limits, predicts the call cost of a run up front, and
// waits out rate-limit pauses through a small backoff state machine.
package ratebudget

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/ghinsight/ghinsight/internal/domain"
)

const (
	// safetyMargin pads every estimate by 20%
	safetyMargin = 1.2

	// assumedCallDuration is the per-call wall time used for the duration
	// estimate, covering pacing plus typical network latency
	assumedCallDuration = 300 * time.Millisecond

	// callsPerBatchTarget keeps one batch of repositories at around a
	// hundred calls
	callsPerBatchTarget = 100

	maxBatchSize = 10
)

// LimitSource is the slice of the gateway this service depends on
type LimitSource interface {
	RateLimits(ctx context.Context) (*domain.RateLimitSnapshot, error)
	LastCoreRate() domain.RateLimitUsage
}

// Service is the rate budget service
type Service struct {
	limits      LimitSource
	logger      *slog.Logger
	maxAttempts int
}

// NewService creates a rate budget service backed by the given gateway
func NewService(limits LimitSource, logger *slog.Logger) *Service {
	return &Service{
		limits:      limits,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
	}
}

// CheckCurrentLimits queries the remaining budget of both endpoints. The
// query itself is the only side effect
func (s *Service) CheckCurrentLimits(ctx context.Context) (*domain.RateLimitSnapshot, error) {
	return s.limits.RateLimits(ctx)
}

// EstimateRequiredCalls predicts how many calls collecting the given
// repositories will cost. The numbers are a deliberately conservative
// heuristic, not a precise count: each enabled resource is charged a flat
// pagination allowance per repository, and the total is padded by a 20%
// safety margin
func (s *Service) EstimateRequiredCalls(repositories []domain.Repository, options domain.CollectionOptions) domain.CallEstimate {
	perRepo := 1
	if options.IncludeIssues {
		perRepo += 3
		if options.IncludeComments {
			perRepo += 2
		}
	}
	if options.IncludePullRequests {
		perRepo += 2
		if options.IncludeReviews {
			perRepo += 10 + 10
		}
	}
	if options.IncludeCommits {
		perRepo += 5
	}

	total := int(math.Ceil(float64(perRepo*len(repositories)) * safetyMargin))

	estimate := domain.CallEstimate{
		EstimatedCalls:       total,
		EstimatedDuration:    time.Duration(total) * assumedCallDuration,
		RecommendedBatchSize: recommendBatchSize(total, len(repositories)),
	}

	s.logger.Debug("estimated collection cost",
		"repositories", len(repositories),
		"calls_per_repo", perRepo,
		"estimated_calls", total,
		"estimated_duration", estimate.EstimatedDuration)

	return estimate
}

// ValidateCollectionFeasible checks the estimate against the remaining
// budget on every endpoint the run will touch, marks the estimate
// accordingly and returns the snapshot it judged against
func (s *Service) ValidateCollectionFeasible(ctx context.Context, estimate *domain.CallEstimate) (*domain.RateLimitSnapshot, error) {
	snapshot, err := s.limits.RateLimits(ctx)
	if err != nil {
		return nil, err
	}

	estimate.Feasible = estimate.EstimatedCalls <= snapshot.Core.Remaining &&
		snapshot.GraphQL.Remaining > 0

	s.logger.Info("feasibility checked",
		"estimated_calls", estimate.EstimatedCalls,
		"core_remaining", snapshot.Core.Remaining,
		"graphql_remaining", snapshot.GraphQL.Remaining,
		"feasible", estimate.Feasible)

	return snapshot, nil
}

// NewBackoff returns a fresh backoff state machine for one retry loop,
// bound to the budget the gateway last observed
func (s *Service) NewBackoff() *Backoff {
	return &Backoff{
		state:       BackoffIdle,
		maxAttempts: s.maxAttempts,
		sleep:       sleepWithContext,
		now:         time.Now,
		coreRate:    s.limits.LastCoreRate,
		logger:      s.logger,
	}
}

// recommendBatchSize sizes repository batches so a single batch stays near
// the per-batch call target
func recommendBatchSize(totalCalls, repoCount int) int {
	if repoCount == 0 || totalCalls == 0 {
		return 1
	}
	perRepo := int(math.Ceil(float64(totalCalls) / float64(repoCount)))
	batch := callsPerBatchTarget / perRepo
	if batch < 1 {
		return 1
	}
	if batch > maxBatchSize {
		return maxBatchSize
	}
	return batch
}
