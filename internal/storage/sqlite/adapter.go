package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ghinsight/ghinsight/internal/apperrors"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/export"
	"github.com/ghinsight/ghinsight/internal/storage"
)

// sqliteStorage implements the Storage interface for SQLite
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at dbPath and ensures the
// schema exists
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
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
		result BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRun stores a completed run, replacing any previous run with the same id
func (s *sqliteStorage) SaveRun(ctx context.Context, result *domain.AggregateResult) error {
	blob, err := export.EncodeCompressed(result)
	if err != nil {
		return err
	}

	summary := storage.SummaryOf(result)
	query := `
		INSERT OR REPLACE INTO runs (id, project, started_at, finished_at, repo_count, issue_count, pr_count, commit_count, errors, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
func (s *sqliteStorage) GetRun(ctx context.Context, runID string) (*domain.AggregateResult, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT result FROM runs WHERE id = ?`, runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("run %s", runID))
	}
	if err != nil {
		return nil, err
	}
	return export.DecodeCompressed(blob)
}

// ListRuns returns run summaries, newest first
func (s *sqliteStorage) ListRuns(ctx context.Context, project string, limit int) ([]*storage.RunSummary, error) {
	query := `
		SELECT id, project, started_at, finished_at, repo_count, issue_count, pr_count, commit_count, errors
		FROM runs
	`
	var args []any
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
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
func (s *sqliteStorage) LatestRun(ctx context.Context, project string) (*domain.AggregateResult, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT result FROM runs WHERE project = ? ORDER BY started_at DESC LIMIT 1
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
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
