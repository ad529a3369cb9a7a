package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reelscan/internal/config"
	"reelscan/internal/services"
)

// Store manages the job index backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// timeFormat is fixed-width so lexicographic ordering on the stored
// column matches chronological ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the job index database under the data
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJob inserts a pending job for the given video URL and returns it.
func (s *Store) NewJob(ctx context.Context, videoURL string) (*Job, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		VideoURL:  videoURL,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, video_url, status, stage, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.VideoURL, string(job.Status), job.Stage, job.Error,
		job.CreatedAt.Format(timeFormat), job.UpdatedAt.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetByID returns the job with the given ID, or a not-found error.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, video_url, status, stage, error, created_at, updated_at
		 FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "jobs", "get", "job "+id+" not found", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

// List returns all jobs ordered newest first.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_url, status, stage, error, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// ListByStatus returns jobs in the given status, newest first.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Job, error) {
	if !status.IsValid() {
		return nil, services.Wrap(services.ErrValidation, "jobs", "list", "unknown status "+string(status), nil)
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_url, status, stage, error, created_at, updated_at
		 FROM jobs WHERE status = ? ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Update persists the job's mutable fields and refreshes its updated
// timestamp.
func (s *Store) Update(ctx context.Context, job *Job) error {
	ctx = ensureContext(ctx)
	if job == nil {
		return errors.New("update job: nil job")
	}
	if !job.Status.IsValid() {
		return fmt.Errorf("update job: invalid status %q", job.Status)
	}
	job.UpdatedAt = time.Now().UTC()

	err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, stage = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(job.Status), job.Stage, job.Error,
		job.UpdatedAt.Format(timeFormat), job.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// Delete removes a job row. Deleting an unknown ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	if err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// Stats summarizes the index by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusRunning:
			stats.Running = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// Health verifies the database responds to a trivial query.
func (s *Store) Health(ctx context.Context) error {
	ctx = ensureContext(ctx)
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("job index not responding: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var status, createdAt, updatedAt string
	if err := row.Scan(&job.ID, &job.VideoURL, &status, &job.Stage, &job.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	job.Status = Status(status)

	var err error
	if job.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
