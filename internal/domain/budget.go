package domain

import "time"

// EndpointType distinguishes the two GitHub API surfaces the collector
// spends budget on
type EndpointType string

const (
	EndpointCore    EndpointType = "core"
	EndpointGraphQL EndpointType = "graphql"
)

// RateLimitUsage is a snapshot of one endpoint's budget at a point in time.
// Snapshots are read-only: refreshing means taking a new one, never mutating
// an old one
type RateLimitUsage struct {
	Endpoint  EndpointType `json:"endpoint"`
	Limit     int          `json:"limit"`
	Remaining int          `json:"remaining"`
	ResetTime time.Time    `json:"reset_time"`
	CallsMade int          `json:"calls_made"`
}

// RateLimitSnapshot holds both endpoint budgets read in a single check
type RateLimitSnapshot struct {
	Core    RateLimitUsage `json:"core"`
	GraphQL RateLimitUsage `json:"graphql"`
	TakenAt time.Time      `json:"taken_at"`
}

// CallEstimate is the up-front cost prediction for a collection run. The
// estimate is deliberately conservative: it assumes every page fetch is
// needed and adds a safety margin on top
type CallEstimate struct {
	EstimatedCalls       int           `json:"estimated_calls"`
	EstimatedDuration    time.Duration `json:"estimated_duration"`
	Feasible             bool          `json:"feasible"`
	RecommendedBatchSize int           `json:"recommended_batch_size"`
}

// APIUsage records budget consumption across one run: the snapshot before
// the first call, the snapshot after the last, and the number of calls the
// gateway counted in between
type APIUsage struct {
	Before    RateLimitSnapshot `json:"before"`
	After     RateLimitSnapshot `json:"after"`
	CallsMade int               `json:"calls_made"`
}
