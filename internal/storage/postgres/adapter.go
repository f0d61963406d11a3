package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/ghinsight/ghinsight/internal/apperrors"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/export"
	"github.com/ghinsight/ghinsight/internal/storage"
)

// postgresStorage implements the Storage interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage connects to the database and ensures the schema exists
func NewPostgresStorage(connStr string) (storage.Storage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		repo_count INTEGER NOT NULL,
		issue_count INTEGER NOT NULL,
		pr_count INTEGER NOT NULL,
		commit_count INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		result BYTEA NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRun stores a completed run, replacing any previous run with the same id
func (s *postgresStorage) SaveRun(ctx context.Context, result *domain.AggregateResult) error {
	blob, err := export.EncodeCompressed(result)
	if err != nil {
		return err
	}

	summary := storage.SummaryOf(result)
	query := `
		INSERT INTO runs (id, project, started_at, finished_at, repo_count, issue_count, pr_count, commit_count, errors, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			project = EXCLUDED.project,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			repo_count = EXCLUDED.repo_count,
			issue_count = EXCLUDED.issue_count,
			pr_count = EXCLUDED.pr_count,
			commit_count = EXCLUDED.commit_count,
			errors = EXCLUDED.errors,
			result = EXCLUDED.result
	`
	_, err = s.db.ExecContext(ctx, query,
		summary.RunID,
		summary.ProjectID,
		summary.StartedAt,
		summary.FinishedAt,
		summary.Repositories,
		summary.Issues,
		summary.PullRequests,
		summary.Commits,
		summary.Errors,
		blob,
	)
	return err
}

// GetRun loads one run by id
func (s *postgresStorage) GetRun(ctx context.Context, runID string) (*domain.AggregateResult, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT result FROM runs WHERE id = $1`, runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("run %s", runID))
	}
	if err != nil {
		return nil, err
	}
	return export.DecodeCompressed(blob)
}

// ListRuns returns run summaries, newest first
func (s *postgresStorage) ListRuns(ctx context.Context, project string, limit int) ([]*storage.RunSummary, error) {
	query := `
		SELECT id, project, started_at, finished_at, repo_count, issue_count, pr_count, commit_count, errors
		FROM runs
	`
	var args []any
	if project != "" {
		args = append(args, project)
		query += fmt.Sprintf(` WHERE project = $%d`, len(args))
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*storage.RunSummary
	for rows.Next() {
		var r storage.RunSummary
		err := rows.Scan(&r.RunID, &r.ProjectID, &r.StartedAt, &r.FinishedAt, &r.Repositories, &r.Issues, &r.PullRequests, &r.Commits, &r.Errors)
		if err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}

	return runs, rows.Err()
}

// LatestRun loads the most recent run for a project
func (s *postgresStorage) LatestRun(ctx context.Context, project string) (*domain.AggregateResult, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT result FROM runs WHERE project = $1 ORDER BY started_at DESC LIMIT 1
	`, project).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("runs for %s", project))
	}
	if err != nil {
		return nil, err
	}
	return export.DecodeCompressed(blob)
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
