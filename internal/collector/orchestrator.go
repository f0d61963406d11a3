package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ghinsight/ghinsight/internal/apperrors"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/gateway"
	"github.com/ghinsight/ghinsight/internal/index"
	"github.com/ghinsight/ghinsight/internal/merge"
	"github.com/ghinsight/ghinsight/internal/metrics"
	"github.com/ghinsight/ghinsight/internal/ratebudget"
)

// RunState is the observable phase of a collection run
type RunState string

const (
	StateIdle               RunState = "idle"
	StateEstimating         RunState = "estimating"
	StateFeasibilityChecked RunState = "feasibility_checked"
	StateCollecting         RunState = "collecting"
	StateFlattening         RunState = "flattening"
	StateIndexing           RunState = "indexing"
	StateMetricsComputed    RunState = "metrics_computed"
	StateComplete           RunState = "complete"
	StateFailed             RunState = "failed"
)

// retryWaiter blocks until the next attempt is safe, or errors once the
// attempt budget is spent
type retryWaiter interface {
	Wait(ctx context.Context, cause error) error
}

// Orchestrator drives a collection run through estimation, feasibility,
// per-repository collection, flattening, indexing and metrics
type Orchestrator struct {
	fetcher    gateway.Fetcher
	budget     *ratebudget.Service
	resources  *ResourceCollector
	logger     *slog.Logger
	newBackoff func() retryWaiter

	mu    sync.Mutex
	state RunState

	// gate pauses the run during backoff: collection holds it shared, a
	// backoff wait holds it exclusively, so nothing fetches while a pause
	// is in progress
	gate sync.RWMutex
}

// NewOrchestrator creates an orchestrator over the given gateway and rate
// budget service
func NewOrchestrator(fetcher gateway.Fetcher, budget *ratebudget.Service, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		fetcher:   fetcher,
		budget:    budget,
		resources: NewResourceCollector(fetcher, logger),
		logger:    logger,
		state:     StateIdle,
	}
	o.newBackoff = func() retryWaiter { return budget.NewBackoff() }
	return o
}

// State returns the phase of the current or most recent run
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s RunState) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("run state changed", "from", prev, "to", s)
}

func (o *Orchestrator) fail(err error) error {
	o.setState(StateFailed)
	return err
}

// Collect runs a full collection for projectID, which is either an owner
// login or "owner/repo". A repository whose fetch keeps failing is skipped
// and recorded; the run only fails outright when the budget is infeasible
// up front or no repository yields any data.
func (o *Orchestrator) Collect(ctx context.Context, projectID string, options domain.CollectionOptions) (*domain.AggregateResult, error) {
	started := time.Now()
	callsBefore := o.fetcher.CallsMade()

	o.setState(StateEstimating)
	owner, repos, err := o.resolveRepositories(ctx, projectID, options)
	if err != nil {
		return nil, o.fail(err)
	}

	estimate := o.budget.EstimateRequiredCalls(repos, options)
	before, err := o.budget.ValidateCollectionFeasible(ctx, &estimate)
	if err != nil {
		return nil, o.fail(apperrors.NewTransportError(projectID, "rate_limits", err))
	}
	if !estimate.Feasible {
		return nil, o.fail(apperrors.NewBudgetInfeasibleError(estimate.EstimatedCalls, before.Core.Remaining).WithOptions(optionsSummary(options)))
	}
	o.setState(StateFeasibilityChecked)

	o.setState(StateCollecting)
	collected := make([]*RepoData, len(repos))
	var failmu sync.Mutex
	var failures []domain.FailedRepository

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(options.WorkerCount())
	for i, repo := range repos {
		g.Go(func() error {
			data, err := o.collectWithRetry(gctx, owner, repo, options)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.logger.Warn("repository skipped", "repository", repo.Name, "error", err)
				failmu.Lock()
				failures = append(failures, failedRepository(repo.Name, err))
				failmu.Unlock()
				return nil
			}
			collected[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, o.fail(err)
	}

	done := 0
	for _, data := range collected {
		if data != nil {
			done++
		}
	}
	if done == 0 && len(repos) > 0 {
		return nil, o.fail(apperrors.NewAllRepositoriesFailedError(projectID))
	}

	o.setState(StateFlattening)
	raw := flatten(collected)

	o.setState(StateIndexing)
	indexes := index.Build(&raw)

	computed := metrics.Compute(&raw, indexes)
	o.setState(StateMetricsComputed)

	after, err := o.budget.CheckCurrentLimits(ctx)
	if err != nil {
		o.logger.Warn("could not read final rate limits", "error", err)
		after = &domain.RateLimitSnapshot{}
	}

	finished := time.Now()
	result := &domain.AggregateResult{
		Raw:     raw,
		Indexes: indexes,
		Metrics: computed,
		Metadata: domain.Metadata{
			Collection: domain.CollectionMetadata{
				ProjectID:          projectID,
				Options:            options,
				RepositoriesFound:  len(repos),
				RepositoriesDone:   done,
				ErrorsEncountered:  len(failures),
				FailedRepositories: failures,
			},
			Execution: domain.ExecutionMetadata{
				RunID:      uuid.New().String(),
				StartedAt:  started,
				FinishedAt: finished,
				DurationMS: finished.Sub(started).Milliseconds(),
			},
			APIUsage: domain.APIUsage{
				Before:    *before,
				After:     *after,
				CallsMade: o.fetcher.CallsMade() - callsBefore,
			},
			QueryHints: registerHints(collected),
		},
	}

	o.setState(StateComplete)
	o.logger.Info("collection complete",
		"project", projectID,
		"repositories", done,
		"failed", len(failures),
		"calls_made", result.Metadata.APIUsage.CallsMade,
		"duration", finished.Sub(started))
	return result, nil
}

// Feasibility is the outcome of a dry-run estimate: how many repositories
// were found, what the collection would cost, and the limits it was judged
// against
type Feasibility struct {
	ProjectID    string                    `json:"project_id"`
	Repositories int                       `json:"repositories"`
	Estimate     domain.CallEstimate       `json:"estimate"`
	Limits       *domain.RateLimitSnapshot `json:"limits"`
}

// Estimate resolves the project's repositories and prices a collection
// without performing one. It never changes run state.
func (o *Orchestrator) Estimate(ctx context.Context, projectID string, options domain.CollectionOptions) (*Feasibility, error) {
	_, repos, err := o.resolveRepositories(ctx, projectID, options)
	if err != nil {
		return nil, err
	}

	estimate := o.budget.EstimateRequiredCalls(repos, options)
	limits, err := o.budget.ValidateCollectionFeasible(ctx, &estimate)
	if err != nil {
		return nil, apperrors.NewTransportError(projectID, "rate_limits", err)
	}

	return &Feasibility{
		ProjectID:    projectID,
		Repositories: len(repos),
		Estimate:     estimate,
		Limits:       limits,
	}, nil
}

// resolveRepositories turns a project id into the owner login and the set
// of repositories to collect. Owners are tried as an organization first,
// then as a user.
func (o *Orchestrator) resolveRepositories(ctx context.Context, projectID string, options domain.CollectionOptions) (string, []domain.Repository, error) {
	owner, single, isSingle := strings.Cut(projectID, "/")
	if isSingle {
		repo, err := o.fetcher.GetRepository(ctx, owner, single)
		if err != nil {
			return "", nil, err
		}
		return owner, []domain.Repository{repo}, nil
	}

	if len(options.Repositories) > 0 {
		repos := make([]domain.Repository, 0, len(options.Repositories))
		for _, name := range options.Repositories {
			repo, err := o.fetcher.GetRepository(ctx, owner, name)
			if err != nil {
				return "", nil, err
			}
			repos = append(repos, repo)
		}
		return owner, repos, nil
	}

	repos, err := o.fetcher.ListRepositoriesByOrg(ctx, owner)
	if apperrors.IsNotFound(err) {
		repos, err = o.fetcher.ListRepositoriesByUser(ctx, owner)
	}
	if err != nil {
		return "", nil, err
	}
	if len(repos) == 0 {
		return "", nil, apperrors.NewNotFoundError(fmt.Sprintf("repositories for %s", owner))
	}
	return owner, repos, nil
}

// collectWithRetry runs one repository's collection, waiting out failures
// through the backoff machine. Not-found errors are permanent and skip the
// retry loop entirely.
func (o *Orchestrator) collectWithRetry(ctx context.Context, owner string, repo domain.Repository, options domain.CollectionOptions) (*RepoData, error) {
	backoff := o.newBackoff()
	for {
		o.gate.RLock()
		data, err := o.resources.CollectRepository(ctx, owner, repo, options)
		o.gate.RUnlock()
		if err == nil {
			return data, nil
		}
		if apperrors.IsNotFound(err) {
			return nil, err
		}

		o.gate.Lock()
		werr := backoff.Wait(ctx, err)
		o.gate.Unlock()
		if werr != nil {
			return nil, err
		}
	}
}

// flatten folds per-repository results into project-wide flat arrays,
// keeping repository order and each repository's item order
func flatten(collected []*RepoData) domain.RawData {
	var raw domain.RawData
	for _, data := range collected {
		if data == nil {
			continue
		}
		raw.Repositories = append(raw.Repositories, data.Repository)
		raw.Issues = append(raw.Issues, data.Issues...)
		raw.PullRequests = append(raw.PullRequests, data.PullRequests...)
		raw.Commits = append(raw.Commits, data.Commits...)
		raw.IssueComments = append(raw.IssueComments, data.Comments...)
		raw.PRReviews = append(raw.PRReviews, data.Reviews...)
		raw.PRReviewComments = append(raw.PRReviewComments, data.ReviewComments...)
	}
	return raw
}

func failedRepository(repo string, err error) domain.FailedRepository {
	f := domain.FailedRepository{Repository: repo, Error: err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		f.Resource = appErr.Resource
	}
	return f
}

// registerHints merges each repository's summary document under
// repositories.<name> and returns the rewritten hint set consumers find in
// the result metadata
func registerHints(collected []*RepoData) []domain.QueryHint {
	merger := merge.New()
	for _, data := range collected {
		if data == nil {
			continue
		}
		merger.Merge("repositories."+data.Repository.Name, repoSummary(data), []domain.QueryHint{
			{Query: ".summary", Description: "headline counts for one repository", Scope: domain.HintSingleItem},
			{Query: ".issues_30d", Description: "issues opened in the last 30 days", Scope: domain.HintSingleItem},
			{Query: ".top_contributors", Description: "most active authors of one repository", Scope: domain.HintSingleItem},
		})
	}
	merger.AddHints(
		domain.QueryHint{Query: ".metrics.project_summary", Description: "project-wide totals and averages", Scope: domain.HintParentLevel},
		domain.QueryHint{Query: ".metrics.timeline_metrics.periods", Description: "weekly activity buckets", Scope: domain.HintParentLevel},
		domain.QueryHint{Query: ".metadata.collection.failed_repositories", Description: "repositories skipped after failures", Scope: domain.HintParentLevel},
	)
	return merger.Hints()
}

// repoSummary is the child document merged under repositories.<name>
func repoSummary(data *RepoData) map[string]any {
	cutoff := time.Now().AddDate(0, 0, -30)
	recent := 0
	for _, issue := range data.Issues {
		if issue.CreatedAt.After(cutoff) {
			recent++
		}
	}

	activity := make(map[string]int)
	for _, issue := range data.Issues {
		if issue.User.Login != "" {
			activity[issue.User.Login]++
		}
	}
	for _, pr := range data.PullRequests {
		if pr.User.Login != "" {
			activity[pr.User.Login]++
		}
	}
	for _, commit := range data.Commits {
		if commit.AuthorName != "" {
			activity[commit.AuthorName]++
		}
	}

	return map[string]any{
		"summary": map[string]any{
			"issues":        len(data.Issues),
			"pull_requests": len(data.PullRequests),
			"commits":       len(data.Commits),
			"comments":      len(data.Comments),
			"reviews":       len(data.Reviews),
		},
		"issues_30d":       recent,
		"top_contributors": topContributors(activity, 3),
	}
}

func topContributors(activity map[string]int, n int) []string {
	names := make([]string, 0, len(activity))
	for name := range activity {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if activity[names[i]] != activity[names[j]] {
			return activity[names[i]] > activity[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
