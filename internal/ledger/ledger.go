// Package ledger records extraction attempts per URL in sqlite. It provides
// submission idempotency and the data behind the admin retry view.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Attempt statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusNotRecipe = "not_recipe"
	StatusFailed    = "failed"
)

// ErrNotFound is returned for an unknown attempt id.
var ErrNotFound = errors.New("ledger: attempt not found")

// Attempt is one URL's ingestion record. Attempts counts how many times a
// job has been started for the URL.
type Attempt struct {
	ID          string
	URL         string
	Attempts    int
	Status      string
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Ledger is a sqlite-backed attempt store. Safe for concurrent use.
type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	attempts     INTEGER NOT NULL DEFAULT 1,
	status       TEXT NOT NULL,
	last_error   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);`

// Open opens (creating if necessary) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// Begin records a submission for url and reports whether a new job should
// run. A URL that is in flight or already completed is acknowledged without
// a new job; a previously failed URL gets a fresh attempt.
func (l *Ledger) Begin(ctx context.Context, url string) (Attempt, bool, error) {
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO attempts (id, url, attempts, status, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?, ?)`,
		id, url, StatusRunning, now, now)
	if err == nil {
		return Attempt{ID: id, URL: url, Attempts: 1, Status: StatusRunning, CreatedAt: now, UpdatedAt: now}, true, nil
	}
	if !isUniqueViolation(err) {
		return Attempt{}, false, fmt.Errorf("recording attempt: %w", err)
	}

	existing, err := l.byURL(ctx, url)
	if err != nil {
		return Attempt{}, false, err
	}
	if existing.Status != StatusFailed {
		// In flight, completed, or rejected as not-a-recipe: accept the
		// duplicate submission without queuing a second job.
		return existing, false, nil
	}
	return l.restart(ctx, existing)
}

// Retry restarts a failed or rejected attempt by id. Running and completed
// attempts are returned unchanged with started=false.
func (l *Ledger) Retry(ctx context.Context, id string) (Attempt, bool, error) {
	att, err := l.Get(ctx, id)
	if err != nil {
		return Attempt{}, false, err
	}
	if att.Status != StatusFailed && att.Status != StatusNotRecipe {
		return att, false, nil
	}
	return l.restart(ctx, att)
}

func (l *Ledger) restart(ctx context.Context, att Attempt) (Attempt, bool, error) {
	now := time.Now().UTC()
	_, err := l.db.ExecContext(ctx,
		`UPDATE attempts SET attempts = attempts + 1, status = ?, last_error = '', updated_at = ? WHERE id = ?`,
		StatusRunning, now, att.ID)
	if err != nil {
		return Attempt{}, false, fmt.Errorf("restarting attempt: %w", err)
	}
	att.Attempts++
	att.Status = StatusRunning
	att.LastError = ""
	att.UpdatedAt = now
	return att, true, nil
}

// Complete records a successful terminal outcome.
func (l *Ledger) Complete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return l.setStatus(ctx, id, StatusCompleted, "", &now)
}

// RecordNotRecipe records a not-a-recipe rejection with its reason.
func (l *Ledger) RecordNotRecipe(ctx context.Context, id, reason string) error {
	return l.setStatus(ctx, id, StatusNotRecipe, reason, nil)
}

// RecordFailure records a hard job failure.
func (l *Ledger) RecordFailure(ctx context.Context, id string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	return l.setStatus(ctx, id, StatusFailed, msg, nil)
}

func (l *Ledger) setStatus(ctx context.Context, id, status, lastError string, completedAt *time.Time) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE attempts SET status = ?, last_error = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		status, lastError, time.Now().UTC(), completedAt, id)
	if err != nil {
		return fmt.Errorf("updating attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one attempt by id.
func (l *Ledger) Get(ctx context.Context, id string) (Attempt, error) {
	return l.scanOne(l.db.QueryRowContext(ctx,
		`SELECT id, url, attempts, status, last_error, created_at, updated_at, completed_at
		 FROM attempts WHERE id = ?`, id))
}

func (l *Ledger) byURL(ctx context.Context, url string) (Attempt, error) {
	return l.scanOne(l.db.QueryRowContext(ctx,
		`SELECT id, url, attempts, status, last_error, created_at, updated_at, completed_at
		 FROM attempts WHERE url = ?`, url))
}

// ListUnresolved returns attempts that have not completed successfully,
// newest first. This backs the admin retry view.
func (l *Ledger) ListUnresolved(ctx context.Context) ([]Attempt, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, url, attempts, status, last_error, created_at, updated_at, completed_at
		 FROM attempts WHERE status != ? ORDER BY updated_at DESC`, StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		att, err := l.scanOne(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, att)
	}
	return attempts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (l *Ledger) scanOne(row rowScanner) (Attempt, error) {
	var att Attempt
	var completedAt sql.NullTime
	err := row.Scan(&att.ID, &att.URL, &att.Attempts, &att.Status, &att.LastError,
		&att.CreatedAt, &att.UpdatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("scanning attempt: %w", err)
	}
	if completedAt.Valid {
		att.CompletedAt = &completedAt.Time
	}
	return att, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
