// Package gateway provides access to the GitHub API, abstracting away the
// underlying REST and GraphQL clients. All pagination, request pacing and
// call counting happens here; callers see plain domain slices.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v55/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/ghinsight/ghinsight/internal/apperrors"
	"github.com/ghinsight/ghinsight/internal/domain"
)

const defaultPageSize = 100

// minRequestInterval paces outgoing calls so bursts do not trip GitHub's
// secondary rate limits
const minRequestInterval = 100 * time.Millisecond

// Fetcher defines the behavior of a gateway for fetching repository
// activity from GitHub
type Fetcher interface {
	ListRepositoriesByOrg(ctx context.Context, org string) ([]domain.Repository, error)
	ListRepositoriesByUser(ctx context.Context, user string) ([]domain.Repository, error)
	GetRepository(ctx context.Context, owner, name string) (domain.Repository, error)
	ListIssues(ctx context.Context, owner, repo string, limit int, since, until time.Time) ([]domain.Issue, error)
	ListIssueComments(ctx context.Context, owner, repo string, number, limit int) ([]domain.Comment, error)
	ListPullRequests(ctx context.Context, owner, repo string, limit int, since, until time.Time) ([]domain.PullRequest, error)
	ListPullRequestReviews(ctx context.Context, owner, repo string, number int) ([]domain.Review, error)
	ListPullRequestReviewComments(ctx context.Context, owner, repo string, number, limit int) ([]domain.ReviewComment, error)
	ListCommits(ctx context.Context, owner, repo string, limit int, since, until time.Time) ([]domain.Commit, error)
	RateLimits(ctx context.Context) (*domain.RateLimitSnapshot, error)
	LastCoreRate() domain.RateLimitUsage
	CallsMade() int
}

// GitHubGateway is the concrete implementation of the Fetcher interface
type GitHubGateway struct {
	rest      *github.Client
	graphql   *githubv4.Client
	transport *countingTransport
	logger    *slog.Logger

	mu       sync.Mutex
	lastRate domain.RateLimitUsage
}

// New creates a gateway authenticated with the given token. The HTTP stack
// is layered so every request is paced, counted and covered by the
// secondary-rate-limit waiter
func New(token string, logger *slog.Logger) (*GitHubGateway, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	transport := &countingTransport{
		base: &oauth2.Transport{
			Base:   waiter,
			Source: ts,
		},
		pacer: rate.NewLimiter(rate.Every(minRequestInterval), 1),
	}
	httpClient := &http.Client{Transport: transport}

	return &GitHubGateway{
		rest:      github.NewClient(httpClient),
		graphql:   githubv4.NewClient(httpClient),
		transport: transport,
		logger:    logger,
	}, nil
}

// ListRepositoriesByOrg retrieves all repositories of an organization
func (g *GitHubGateway) ListRepositoriesByOrg(ctx context.Context, org string) ([]domain.Repository, error) {
	var all []domain.Repository
	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: defaultPageSize},
	}

	for {
		repos, resp, err := g.rest.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			if isStatus(resp, http.StatusNotFound) {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("organization %s", org))
			}
			return nil, fmt.Errorf("failed to list repositories for org %s: %w", org, err)
		}
		g.observe(resp)

		for _, repo := range repos {
			all = append(all, convertRepository(repo))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// ListRepositoriesByUser retrieves all repositories owned by a user
func (g *GitHubGateway) ListRepositoriesByUser(ctx context.Context, user string) ([]domain.Repository, error) {
	var all []domain.Repository
	opts := &github.RepositoryListOptions{
		Type:        "owner",
		ListOptions: github.ListOptions{PerPage: defaultPageSize},
	}

	for {
		repos, resp, err := g.rest.Repositories.List(ctx, user, opts)
		if err != nil {
			if isStatus(resp, http.StatusNotFound) {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %s", user))
			}
			return nil, fmt.Errorf("failed to list repositories for user %s: %w", user, err)
		}
		g.observe(resp)

		for _, repo := range repos {
			all = append(all, convertRepository(repo))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetRepository retrieves a single repository by owner and name
func (g *GitHubGateway) GetRepository(ctx context.Context, owner, name string) (domain.Repository, error) {
	repo, resp, err := g.rest.Repositories.Get(ctx, owner, name)
	if err != nil {
		if isStatus(resp, http.StatusNotFound) {
			return domain.Repository{}, apperrors.NewNotFoundError(fmt.Sprintf("repository %s/%s", owner, name))
		}
		return domain.Repository{}, fmt.Errorf("failed to get repository %s/%s: %w", owner, name, err)
	}
	g.observe(resp)
	return convertRepository(repo), nil
}

// ListIssues retrieves issues for a repository, newest first, bounded by
// limit and the since/until window on creation time. Pull requests are
// excluded even though the underlying endpoint returns them
func (g *GitHubGateway) ListIssues(ctx context.Context, owner, repo string, limit int, since, until time.Time) ([]domain.Issue, error) {
	var issues []domain.Issue
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: pageSize(limit)},
	}
	if !since.IsZero() {
		opts.Since = since
	}

	for {
		page, resp, err := g.rest.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues for %s/%s: %w", owner, repo, err)
		}
		g.observe(resp)

		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			created := issue.GetCreatedAt().Time
			if !until.IsZero() && created.After(until) {
				continue
			}
			if !since.IsZero() && created.Before(since) {
				// Sorted by created desc, nothing older can match
				return issues, nil
			}
			issues = append(issues, convertIssue(issue))
			if limit > 0 && len(issues) >= limit {
				return issues, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return issues, nil
}

// ListIssueComments retrieves the comments of one issue, oldest first
func (g *GitHubGateway) ListIssueComments(ctx context.Context, owner, repo string, number, limit int) ([]domain.Comment, error) {
	var comments []domain.Comment
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: pageSize(limit)},
	}

	for {
		page, resp, err := g.rest.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments for %s/%s#%d: %w", owner, repo, number, err)
		}
		g.observe(resp)

		for _, comment := range page {
			comments = append(comments, convertComment(comment))
			if limit > 0 && len(comments) >= limit {
				return comments, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return comments, nil
}

// ListPullRequests retrieves pull requests for a repository, newest first,
// bounded by limit and the since/until window on creation time
func (g *GitHubGateway) ListPullRequests(ctx context.Context, owner, repo string, limit int, since, until time.Time) ([]domain.PullRequest, error) {
	var prs []domain.PullRequest
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: pageSize(limit)},
	}

	for {
		page, resp, err := g.rest.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests for %s/%s: %w", owner, repo, err)
		}
		g.observe(resp)

		for _, pr := range page {
			created := pr.GetCreatedAt().Time
			if !until.IsZero() && created.After(until) {
				continue
			}
			if !since.IsZero() && created.Before(since) {
				// Sorted by created desc, nothing older can match
				return prs, nil
			}
			prs = append(prs, convertPullRequest(pr))
			if limit > 0 && len(prs) >= limit {
				return prs, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return prs, nil
}

// ListPullRequestReviews retrieves all reviews of one pull request
func (g *GitHubGateway) ListPullRequestReviews(ctx context.Context, owner, repo string, number int) ([]domain.Review, error) {
	var reviews []domain.Review
	opts := &github.ListOptions{PerPage: defaultPageSize}

	for {
		page, resp, err := g.rest.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list reviews for %s/%s#%d: %w", owner, repo, number, err)
		}
		g.observe(resp)

		for _, review := range page {
			reviews = append(reviews, convertReview(review))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return reviews, nil
}

// ListPullRequestReviewComments retrieves the review comments of one pull
// request, bounded by limit
func (g *GitHubGateway) ListPullRequestReviewComments(ctx context.Context, owner, repo string, number, limit int) ([]domain.ReviewComment, error) {
	var comments []domain.ReviewComment
	opts := &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: pageSize(limit)},
	}

	for {
		page, resp, err := g.rest.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list review comments for %s/%s#%d: %w", owner, repo, number, err)
		}
		g.observe(resp)

		for _, comment := range page {
			comments = append(comments, convertReviewComment(comment))
			if limit > 0 && len(comments) >= limit {
				return comments, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return comments, nil
}

// ListCommits retrieves commits for a repository, newest first, bounded by
// limit. The since/until window is applied server-side on the author date
func (g *GitHubGateway) ListCommits(ctx context.Context, owner, repo string, limit int, since, until time.Time) ([]domain.Commit, error) {
	var commits []domain.Commit
	opts := &github.CommitsListOptions{
		Since:       since,
		Until:       until,
		ListOptions: github.ListOptions{PerPage: pageSize(limit)},
	}

	for {
		page, resp, err := g.rest.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			// 409 means the repository has no commits at all
			if isStatus(resp, http.StatusConflict) {
				return commits, nil
			}
			return nil, fmt.Errorf("failed to list commits for %s/%s: %w", owner, repo, err)
		}
		g.observe(resp)

		for _, commit := range page {
			commits = append(commits, convertCommit(commit))
			if limit > 0 && len(commits) >= limit {
				return commits, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return commits, nil
}

// graphqlRateQuery reads the point budget of the GraphQL endpoint. The
// query itself costs a single point
type graphqlRateQuery struct {
	RateLimit struct {
		Limit     int
		Cost      int
		Remaining int
		ResetAt   githubv4.DateTime
	}
}

// RateLimits queries the current budget of both endpoints
func (g *GitHubGateway) RateLimits(ctx context.Context) (*domain.RateLimitSnapshot, error) {
	limits, resp, err := g.rest.RateLimits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate limits: %w", err)
	}
	g.observe(resp)

	snapshot := &domain.RateLimitSnapshot{TakenAt: time.Now()}
	if core := limits.GetCore(); core != nil {
		snapshot.Core = domain.RateLimitUsage{
			Endpoint:  domain.EndpointCore,
			Limit:     core.Limit,
			Remaining: core.Remaining,
			ResetTime: core.Reset.Time,
			CallsMade: core.Limit - core.Remaining,
		}
	}

	var q graphqlRateQuery
	if err := g.graphql.Query(ctx, &q, nil); err != nil {
		return nil, fmt.Errorf("failed to query graphql rate limit: %w", err)
	}
	snapshot.GraphQL = domain.RateLimitUsage{
		Endpoint:  domain.EndpointGraphQL,
		Limit:     q.RateLimit.Limit,
		Remaining: q.RateLimit.Remaining,
		ResetTime: q.RateLimit.ResetAt.Time,
		CallsMade: q.RateLimit.Limit - q.RateLimit.Remaining,
	}

	g.logger.Debug("rate limits fetched",
		"core_remaining", snapshot.Core.Remaining,
		"graphql_remaining", snapshot.GraphQL.Remaining)

	return snapshot, nil
}

// LastCoreRate returns the most recent core budget observed on any REST
// response, without spending a call
func (g *GitHubGateway) LastCoreRate() domain.RateLimitUsage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRate
}

// CallsMade returns the number of HTTP requests sent so far
func (g *GitHubGateway) CallsMade() int {
	if g.transport == nil {
		return 0
	}
	return g.transport.count()
}

// observe records the rate budget GitHub reported on a response
func (g *GitHubGateway) observe(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	g.mu.Lock()
	g.lastRate = domain.RateLimitUsage{
		Endpoint:  domain.EndpointCore,
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		ResetTime: resp.Rate.Reset.Time,
		CallsMade: resp.Rate.Limit - resp.Rate.Remaining,
	}
	g.mu.Unlock()
}

func isStatus(resp *github.Response, status int) bool {
	return resp != nil && resp.StatusCode == status
}

func pageSize(limit int) int {
	if limit > 0 && limit < defaultPageSize {
		return limit
	}
	return defaultPageSize
}
