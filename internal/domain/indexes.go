package domain

// ItemReference is a lightweight pointer into one of the flat arrays. It
// never copies the referenced item.
type ItemReference struct {
	Index          int      `json:"index"`
	RepositoryName string   `json:"repository_name"`
	Type           ItemType `json:"type"`
}

// OptimalIndexes maps lookup keys to ordered positions within the flat
// arrays. Buckets preserve first-seen order and never contain the same
// position twice. Repository buckets fall back to the literal key "unknown"
// when an item is missing its repository tag.
type OptimalIndexes struct {
	IssuesByRepo    map[string][]int           `json:"issues_by_repo"`
	PRsByRepo       map[string][]int           `json:"prs_by_repo"`
	CommitsByRepo   map[string][]int           `json:"commits_by_repo"`
	ItemsByAuthor   map[string][]ItemReference `json:"items_by_author"`
	ItemsByLabel    map[string][]ItemReference `json:"items_by_label"`
	CommentsByIssue map[IssueID][]int          `json:"comments_by_issue"`
	ReviewsByPR     map[PullRequestID][]int    `json:"reviews_by_pr"`
}

// UnknownKey buckets items whose repository tag or author is missing
const UnknownKey = "unknown"

// NewOptimalIndexes returns indexes with every bucket map allocated, so
// lookups and appends never hit a nil map
func NewOptimalIndexes() *OptimalIndexes {
	return &OptimalIndexes{
		IssuesByRepo:    make(map[string][]int),
		PRsByRepo:       make(map[string][]int),
		CommitsByRepo:   make(map[string][]int),
		ItemsByAuthor:   make(map[string][]ItemReference),
		ItemsByLabel:    make(map[string][]ItemReference),
		CommentsByIssue: make(map[IssueID][]int),
		ReviewsByPR:     make(map[PullRequestID][]int),
	}
}
