package domain

import "time"

// Default per-resource limits applied when an option is enabled but no limit is set
const (
	DefaultIssueLimit   = 200
	DefaultPRLimit      = 200
	DefaultCommitLimit  = 300
	DefaultCommentLimit = 50
	DefaultConcurrency  = 3
)

// CollectionOptions controls what a collection run fetches. The orchestrator
// treats a CollectionOptions value as immutable once a run starts.
type CollectionOptions struct {
	IncludeIssues       bool `json:"include_issues"`
	IncludePullRequests bool `json:"include_pull_requests"`
	IncludeCommits      bool `json:"include_commits"`
	IncludeComments     bool `json:"include_comments"`
	IncludeReviews      bool `json:"include_reviews"`

	// Per-resource caps. Zero means the default for that resource.
	MaxIssues           int `json:"max_issues,omitempty"`
	MaxPullRequests     int `json:"max_pull_requests,omitempty"`
	MaxCommits          int `json:"max_commits,omitempty"`
	MaxCommentsPerIssue int `json:"max_comments_per_issue,omitempty"`

	// Optional time window compared against item creation time
	// (author date for commits). Zero values mean unbounded.
	Since time.Time `json:"since,omitempty"`
	Until time.Time `json:"until,omitempty"`

	// Repositories restricts collection to the named repositories. Empty
	// means every repository of the project owner.
	Repositories []string `json:"repositories,omitempty"`

	// Concurrency bounds how many repositories are collected at once.
	// Zero means DefaultConcurrency; sub-resources of one repository are
	// always fetched sequentially.
	Concurrency int `json:"concurrency,omitempty"`
}

// DefaultOptions returns options that collect everything with default limits
func DefaultOptions() CollectionOptions {
	return CollectionOptions{
		IncludeIssues:       true,
		IncludePullRequests: true,
		IncludeCommits:      true,
		IncludeComments:     true,
		IncludeReviews:      true,
	}
}

// IssueLimit returns the effective issue cap
func (o CollectionOptions) IssueLimit() int {
	if o.MaxIssues > 0 {
		return o.MaxIssues
	}
	return DefaultIssueLimit
}

// PullRequestLimit returns the effective pull request cap
func (o CollectionOptions) PullRequestLimit() int {
	if o.MaxPullRequests > 0 {
		return o.MaxPullRequests
	}
	return DefaultPRLimit
}

// CommitLimit returns the effective commit cap
func (o CollectionOptions) CommitLimit() int {
	if o.MaxCommits > 0 {
		return o.MaxCommits
	}
	return DefaultCommitLimit
}

// CommentLimit returns the effective per-issue comment cap
func (o CollectionOptions) CommentLimit() int {
	if o.MaxCommentsPerIssue > 0 {
		return o.MaxCommentsPerIssue
	}
	return DefaultCommentLimit
}

// WorkerCount returns the effective repository concurrency
func (o CollectionOptions) WorkerCount() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return DefaultConcurrency
}

// InWindow reports whether t falls inside the configured time window
func (o CollectionOptions) InWindow(t time.Time) bool {
	if !o.Since.IsZero() && t.Before(o.Since) {
		return false
	}
	if !o.Until.IsZero() && t.After(o.Until) {
		return false
	}
	return true
}
