package domain

import "time"

// ItemType identifies which flat array an item or reference belongs to
type ItemType string

const (
	ItemTypeRepository    ItemType = "repository"
	ItemTypeIssue         ItemType = "issue"
	ItemTypePullRequest   ItemType = "pull_request"
	ItemTypeCommit        ItemType = "commit"
	ItemTypeIssueComment  ItemType = "issue_comment"
	ItemTypeReview        ItemType = "pr_review"
	ItemTypeReviewComment ItemType = "pr_review_comment"
)

// IssueID is the numeric GitHub id of an issue. Comments reference their
// owning issue through this type rather than a bare integer so issue and
// pull-request ids cannot be mixed up.
type IssueID int64

// PullRequestID is the numeric GitHub id of a pull request
type PullRequestID int64

// User is a GitHub account reference as it appears in API payloads
type User struct {
	Login string `json:"login"`
}

// Label is a GitHub issue label as it appears in API payloads
type Label struct {
	Name string `json:"name"`
}

// Repository is a collected repository with its GitHub metadata
type Repository struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description,omitempty"`
	Language        string    `json:"language,omitempty"`
	Private         bool      `json:"private"`
	Fork            bool      `json:"fork"`
	Archived        bool      `json:"archived"`
	DefaultBranch   string    `json:"default_branch,omitempty"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PushedAt        time.Time `json:"pushed_at"`
	RepositoryName  string    `json:"repository_name"`
}

// Issue is a collected issue tagged with its repository
type Issue struct {
	ID             IssueID    `json:"id"`
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	State          string     `json:"state"`
	Body           string     `json:"body,omitempty"`
	HTMLURL        string     `json:"html_url,omitempty"`
	User           User       `json:"user"`
	Labels         []Label    `json:"labels,omitempty"`
	Comments       int        `json:"comments"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	RepositoryName string     `json:"repository_name"`
}

// PullRequest is a collected pull request tagged with its repository
type PullRequest struct {
	ID             PullRequestID `json:"id"`
	Number         int           `json:"number"`
	Title          string        `json:"title"`
	State          string        `json:"state"`
	Body           string        `json:"body,omitempty"`
	HTMLURL        string        `json:"html_url,omitempty"`
	User           User          `json:"user"`
	Draft          bool          `json:"draft"`
	Merged         bool          `json:"merged"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	ClosedAt       *time.Time    `json:"closed_at,omitempty"`
	MergedAt       *time.Time    `json:"merged_at,omitempty"`
	RepositoryName string        `json:"repository_name"`
}

// Commit is a collected commit tagged with its repository. AuthorName comes
// from the git commit header and is always present; AuthorLogin is only set
// when GitHub could match the commit to an account.
type Commit struct {
	SHA            string    `json:"sha"`
	Message        string    `json:"message"`
	AuthorName     string    `json:"author_name"`
	AuthorEmail    string    `json:"author_email,omitempty"`
	AuthorLogin    string    `json:"author_login,omitempty"`
	AuthorDate     time.Time `json:"author_date"`
	HTMLURL        string    `json:"html_url,omitempty"`
	RepositoryName string    `json:"repository_name"`
}

// Comment is an issue comment tagged with its repository and owning issue
type Comment struct {
	ID             int64     `json:"id"`
	Body           string    `json:"body"`
	User           User      `json:"user"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	IssueID        IssueID   `json:"issue_id"`
	RepositoryName string    `json:"repository_name"`
}

// Review is a pull request review tagged with its repository and owning pull request
type Review struct {
	ID             int64         `json:"id"`
	State          string        `json:"state"`
	Body           string        `json:"body,omitempty"`
	User           User          `json:"user"`
	SubmittedAt    time.Time     `json:"submitted_at"`
	PullRequestID  PullRequestID `json:"pull_request_id"`
	RepositoryName string        `json:"repository_name"`
}

// ReviewComment is an inline pull request review comment tagged with its
// repository and owning pull request
type ReviewComment struct {
	ID             int64         `json:"id"`
	Body           string        `json:"body"`
	Path           string        `json:"path,omitempty"`
	User           User          `json:"user"`
	CreatedAt      time.Time     `json:"created_at"`
	PullRequestID  PullRequestID `json:"pull_request_id"`
	RepositoryName string        `json:"repository_name"`
}

// RawData holds every collected item in project-wide flat arrays. Items keep
// their original order within each repository; cross-references (issue_id,
// pull_request_id) always resolve to an entry in the owning array.
type RawData struct {
	Repositories     []Repository    `json:"repositories"`
	Issues           []Issue         `json:"issues"`
	PullRequests     []PullRequest   `json:"pull_requests"`
	Commits          []Commit        `json:"commits"`
	IssueComments    []Comment       `json:"issue_comments"`
	PRReviews        []Review        `json:"pr_reviews"`
	PRReviewComments []ReviewComment `json:"pr_review_comments"`
}
