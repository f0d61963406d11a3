// Package storage persists completed collection runs. A run is stored whole
// as an LZ4-compressed JSON blob next to a few queryable summary columns, so
// listing runs never touches the payload.
package storage

import (
	"context"
	"time"

	"github.com/ghinsight/ghinsight/internal/domain"
)

// RunSummary is one persisted run without its result payload
type RunSummary struct {
	RunID        string    `json:"run_id"`
	ProjectID    string    `json:"project_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Repositories int       `json:"repositories"`
	Issues       int       `json:"issues"`
	PullRequests int       `json:"pull_requests"`
	Commits      int       `json:"commits"`
	Errors       int       `json:"errors"`
}

// Storage is the abstract interface for the persistence layer
type Storage interface {
	// Run persistence
	SaveRun(ctx context.Context, result *domain.AggregateResult) error
	GetRun(ctx context.Context, runID string) (*domain.AggregateResult, error)

	// Run listing, newest first. An empty project matches every project,
	// limit <= 0 means no limit.
	ListRuns(ctx context.Context, project string, limit int) ([]*RunSummary, error)

	// LatestRun returns the most recent run for a project
	LatestRun(ctx context.Context, project string) (*domain.AggregateResult, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}

// SummaryOf derives the summary row stored next to a result blob
func SummaryOf(result *domain.AggregateResult) RunSummary {
	return RunSummary{
		RunID:        result.Metadata.Execution.RunID,
		ProjectID:    result.Metadata.Collection.ProjectID,
		StartedAt:    result.Metadata.Execution.StartedAt,
		FinishedAt:   result.Metadata.Execution.FinishedAt,
		Repositories: len(result.Raw.Repositories),
		Issues:       len(result.Raw.Issues),
		PullRequests: len(result.Raw.PullRequests),
		Commits:      len(result.Raw.Commits),
		Errors:       result.Metadata.Collection.ErrorsEncountered,
	}
}
