package domain

import "time"

// HintScope tells a consumer how widely a query hint applies
type HintScope string

const (
	// HintSingleItem marks a hint that targets one item of a collection
	HintSingleItem HintScope = "single_item"
	// HintAllItems marks a hint that already spans a whole collection
	HintAllItems HintScope = "all_items"
	// HintParentLevel marks a hint that applies to the merged parent result
	HintParentLevel HintScope = "parent_level"
)

// QueryHint describes one useful query path into an AggregateResult, so a
// downstream consumer can navigate the tree without guessing its shape
type QueryHint struct {
	Query       string    `json:"query"`
	Description string    `json:"description"`
	Scope       HintScope `json:"scope"`
}

// ProjectSummary holds the totals and per-repository averages for a run
type ProjectSummary struct {
	TotalRepositories     int     `json:"total_repositories"`
	TotalIssues           int     `json:"total_issues"`
	TotalPullRequests     int     `json:"total_pull_requests"`
	TotalCommits          int     `json:"total_commits"`
	TotalComments         int     `json:"total_comments"`
	TotalReviews          int     `json:"total_reviews"`
	TotalContributors     int     `json:"total_contributors"`
	AverageIssuesPerRepo  float64 `json:"average_issues_per_repo"`
	AveragePRsPerRepo     float64 `json:"average_prs_per_repo"`
	AverageCommitsPerRepo float64 `json:"average_commits_per_repo"`
	IssueCloseRate        float64 `json:"issue_close_rate"`
	PRMergeRate           float64 `json:"pr_merge_rate"`
}

// RepositoryMetrics holds the derived numbers for a single repository
type RepositoryMetrics struct {
	IssueCount                int     `json:"issue_count"`
	OpenIssueCount            int     `json:"open_issue_count"`
	ClosedIssueCount          int     `json:"closed_issue_count"`
	PullRequestCount          int     `json:"pull_request_count"`
	MergedPullRequestCount    int     `json:"merged_pull_request_count"`
	CommitCount               int     `json:"commit_count"`
	CommentCount              int     `json:"comment_count"`
	ReviewCount               int     `json:"review_count"`
	ContributorCount          int     `json:"contributor_count"`
	IssueCloseRate            float64 `json:"issue_close_rate"`
	PRMergeRate               float64 `json:"pr_merge_rate"`
	AvgCommentsPerIssue       float64 `json:"avg_comments_per_issue"`
	AvgReviewsPerPR           float64 `json:"avg_reviews_per_pr"`
	AvgIssueResolutionDays    float64 `json:"avg_issue_resolution_days"`
	MedianIssueResolutionDays float64 `json:"median_issue_resolution_days"`
	Stars                     int     `json:"stars"`
	Forks                     int     `json:"forks"`
}

// ContributorMetrics holds one author's activity across the whole project
type ContributorMetrics struct {
	IssuesOpened  int      `json:"issues_opened"`
	PRsOpened     int      `json:"prs_opened"`
	Commits       int      `json:"commits"`
	Comments      int      `json:"comments"`
	Reviews       int      `json:"reviews"`
	Repositories  []string `json:"repositories"`
	TotalActivity int      `json:"total_activity"`
}

// PeriodActivity is one week's bucket on the activity timeline
type PeriodActivity struct {
	Period       string `json:"period"`
	Issues       int    `json:"issues"`
	PullRequests int    `json:"pull_requests"`
	Commits      int    `json:"commits"`
}

// TimelineMetrics buckets activity by week and reports the growth between
// the two most recent buckets
type TimelineMetrics struct {
	Periods          []PeriodActivity `json:"periods"`
	IssueGrowthRate  float64          `json:"issue_growth_rate"`
	PRGrowthRate     float64          `json:"pr_growth_rate"`
	CommitGrowthRate float64          `json:"commit_growth_rate"`
	ActivityGini     float64          `json:"activity_gini"`
}

// Metrics is the derived layer of an AggregateResult
type Metrics struct {
	ProjectSummary     ProjectSummary                `json:"project_summary"`
	RepositoryMetrics  map[string]RepositoryMetrics  `json:"repository_metrics"`
	ContributorMetrics map[string]ContributorMetrics `json:"contributor_metrics"`
	TimelineMetrics    TimelineMetrics               `json:"timeline_metrics"`
}

// FailedRepository records one repository the run skipped and why
type FailedRepository struct {
	Repository string `json:"repository"`
	Resource   string `json:"resource"`
	Error      string `json:"error"`
}

// CollectionMetadata describes what a run asked for and what it got
type CollectionMetadata struct {
	ProjectID          string             `json:"project_id"`
	Options            CollectionOptions  `json:"options"`
	RepositoriesFound  int                `json:"repositories_found"`
	RepositoriesDone   int                `json:"repositories_collected"`
	ErrorsEncountered  int                `json:"errors_encountered"`
	FailedRepositories []FailedRepository `json:"failed_repositories,omitempty"`
}

// ExecutionMetadata identifies a run and how long it took
type ExecutionMetadata struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Metadata is the bookkeeping layer of an AggregateResult
type Metadata struct {
	Collection CollectionMetadata `json:"collection"`
	Execution  ExecutionMetadata  `json:"execution"`
	APIUsage   APIUsage           `json:"api_usage"`
	QueryHints []QueryHint        `json:"query_hints,omitempty"`
}

// AggregateResult is the final tree a collection run produces. It is built
// once and never partially mutated afterwards; merging child results happens
// while the tree is still under construction
type AggregateResult struct {
	Raw      RawData         `json:"raw"`
	Indexes  *OptimalIndexes `json:"indexes"`
	Metrics  Metrics         `json:"metrics"`
	Metadata Metadata        `json:"metadata"`
}
