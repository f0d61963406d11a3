// Package collector fetches repository activity through the gateway and
// drives whole-project collection runs
package collector

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ghinsight/ghinsight/internal/apperrors"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/gateway"
)

// Resource names recorded on collection failures
const (
	resourceIssues         = "issues"
	resourceIssueComments  = "issue_comments"
	resourcePullRequests   = "pull_requests"
	resourceReviews        = "pr_reviews"
	resourceReviewComments = "pr_review_comments"
	resourceCommits        = "commits"
)

// RepoData holds everything collected for one repository, already tagged
// with the repository name and owning item ids
type RepoData struct {
	Repository     domain.Repository
	Issues         []domain.Issue
	Comments       []domain.Comment
	PullRequests   []domain.PullRequest
	Reviews        []domain.Review
	ReviewComments []domain.ReviewComment
	Commits        []domain.Commit
}

// ResourceCollector fetches the resources of one repository at a time.
// Sub-resources are always fetched sequentially so comment and review
// calls for the same repository cannot burst past short-window limits.
type ResourceCollector struct {
	fetcher gateway.Fetcher
	logger  *slog.Logger
}

// NewResourceCollector creates a collector over the given gateway
func NewResourceCollector(fetcher gateway.Fetcher, logger *slog.Logger) *ResourceCollector {
	return &ResourceCollector{fetcher: fetcher, logger: logger}
}

// CollectIssues fetches a repository's issues and, when comments are
// enabled, the comments of every issue that has any. Issues with a zero
// comment count are not queried at all. Returns empty slices when issues
// are disabled in the options.
func (c *ResourceCollector) CollectIssues(ctx context.Context, owner string, repo domain.Repository, options domain.CollectionOptions) ([]domain.Issue, []domain.Comment, error) {
	if !options.IncludeIssues {
		return nil, nil, nil
	}

	issues, err := c.fetcher.ListIssues(ctx, owner, repo.Name, options.IssueLimit(), options.Since, options.Until)
	if err != nil {
		return nil, nil, c.failed(repo.Name, resourceIssues, options, err)
	}
	for i := range issues {
		issues[i].RepositoryName = repo.Name
	}

	var comments []domain.Comment
	if options.IncludeComments {
		for _, issue := range issues {
			if issue.Comments == 0 {
				continue
			}
			fetched, err := c.fetcher.ListIssueComments(ctx, owner, repo.Name, issue.Number, options.CommentLimit())
			if err != nil {
				return nil, nil, c.failed(repo.Name, resourceIssueComments, options, err)
			}
			for i := range fetched {
				fetched[i].IssueID = issue.ID
				fetched[i].RepositoryName = repo.Name
			}
			comments = append(comments, fetched...)
		}
	}

	return issues, comments, nil
}

// CollectPullRequests fetches a repository's pull requests and, when
// reviews are enabled, the reviews and review comments of every pull
// request. Returns empty slices when pull requests are disabled.
func (c *ResourceCollector) CollectPullRequests(ctx context.Context, owner string, repo domain.Repository, options domain.CollectionOptions) ([]domain.PullRequest, []domain.Review, []domain.ReviewComment, error) {
	if !options.IncludePullRequests {
		return nil, nil, nil, nil
	}

	prs, err := c.fetcher.ListPullRequests(ctx, owner, repo.Name, options.PullRequestLimit(), options.Since, options.Until)
	if err != nil {
		return nil, nil, nil, c.failed(repo.Name, resourcePullRequests, options, err)
	}
	for i := range prs {
		prs[i].RepositoryName = repo.Name
	}

	var reviews []domain.Review
	var reviewComments []domain.ReviewComment
	if options.IncludeReviews {
		for _, pr := range prs {
			fetched, err := c.fetcher.ListPullRequestReviews(ctx, owner, repo.Name, pr.Number)
			if err != nil {
				return nil, nil, nil, c.failed(repo.Name, resourceReviews, options, err)
			}
			for i := range fetched {
				fetched[i].PullRequestID = pr.ID
				fetched[i].RepositoryName = repo.Name
			}
			reviews = append(reviews, fetched...)

			comments, err := c.fetcher.ListPullRequestReviewComments(ctx, owner, repo.Name, pr.Number, options.CommentLimit())
			if err != nil {
				return nil, nil, nil, c.failed(repo.Name, resourceReviewComments, options, err)
			}
			for i := range comments {
				comments[i].PullRequestID = pr.ID
				comments[i].RepositoryName = repo.Name
			}
			reviewComments = append(reviewComments, comments...)
		}
	}

	return prs, reviews, reviewComments, nil
}

// CollectCommits fetches a repository's commits. Returns an empty slice
// when commits are disabled.
func (c *ResourceCollector) CollectCommits(ctx context.Context, owner string, repo domain.Repository, options domain.CollectionOptions) ([]domain.Commit, error) {
	if !options.IncludeCommits {
		return nil, nil
	}

	commits, err := c.fetcher.ListCommits(ctx, owner, repo.Name, options.CommitLimit(), options.Since, options.Until)
	if err != nil {
		return nil, c.failed(repo.Name, resourceCommits, options, err)
	}
	for i := range commits {
		commits[i].RepositoryName = repo.Name
	}
	return commits, nil
}

// CollectRepository gathers every enabled resource of one repository, one
// sub-resource at a time
func (c *ResourceCollector) CollectRepository(ctx context.Context, owner string, repo domain.Repository, options domain.CollectionOptions) (*RepoData, error) {
	issues, comments, err := c.CollectIssues(ctx, owner, repo, options)
	if err != nil {
		return nil, err
	}
	prs, reviews, reviewComments, err := c.CollectPullRequests(ctx, owner, repo, options)
	if err != nil {
		return nil, err
	}
	commits, err := c.CollectCommits(ctx, owner, repo, options)
	if err != nil {
		return nil, err
	}

	repo.RepositoryName = repo.Name
	c.logger.Debug("repository collected",
		"repository", repo.Name,
		"issues", len(issues),
		"pull_requests", len(prs),
		"commits", len(commits))

	return &RepoData{
		Repository:     repo,
		Issues:         issues,
		Comments:       comments,
		PullRequests:   prs,
		Reviews:        reviews,
		ReviewComments: reviewComments,
		Commits:        commits,
	}, nil
}

func (c *ResourceCollector) failed(repo, resource string, options domain.CollectionOptions, err error) error {
	c.logger.Error("resource collection failed",
		"repository", repo,
		"resource", resource,
		"error", err)
	return apperrors.NewCollectionFailedError(repo, resource, err).WithOptions(optionsSummary(options))
}

// optionsSummary renders the active toggles and window so failures carry
// enough context to retry a narrower collection
func optionsSummary(o domain.CollectionOptions) string {
	parts := make([]string, 0, 5)
	if o.IncludeIssues {
		parts = append(parts, "issues")
	}
	if o.IncludeComments {
		parts = append(parts, "comments")
	}
	if o.IncludePullRequests {
		parts = append(parts, "pull_requests")
	}
	if o.IncludeReviews {
		parts = append(parts, "reviews")
	}
	if o.IncludeCommits {
		parts = append(parts, "commits")
	}
	summary := strings.Join(parts, "+")
	if !o.Since.IsZero() {
		summary += " since=" + o.Since.Format(time.RFC3339)
	}
	if !o.Until.IsZero() {
		summary += " until=" + o.Until.Format(time.RFC3339)
	}
	return summary
}
