package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/TheWizardOz3/gogogadget/internal/schedule"
)

// Standard errors.
var (
	ErrNotFound        = errors.New("store: not found")
	ErrVersionConflict = errors.New("store: prompt set version conflict")
)

// PromptSet is the full collection of scheduled prompts plus the version
// counter used for optimistic write-back. A writer must present the
// version it read; a stale version is rejected with ErrVersionConflict.
type PromptSet struct {
	Version int64
	Prompts []schedule.Prompt
}

// Execution is one recorded agent run, scheduled or dispatched.
type Execution struct {
	ID                int64
	JobID             string
	PromptID          string
	Project           string
	SessionID         string
	Trigger           string // "scheduled" or "manual"
	Status            string
	Output            string
	Error             string
	CostUSD           float64
	Turns             int
	Duration          time.Duration
	StartedAt         time.Time
	CompletedAt       time.Time
	HasPendingChanges bool
}

// Store persists scheduled prompts, settings and execution history in sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// any pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}
		slog.Info("schema migration applied", "version", i+1)
	}
	return nil
}

// LoadPromptSet returns all scheduled prompts in stored order together
// with the current version. An empty database yields version 0 and no
// prompts.
func (s *Store) LoadPromptSet(ctx context.Context) (*PromptSet, error) {
	version, err := s.promptSetVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT data FROM scheduled_prompts ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled prompts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	set := &PromptSet{Version: version}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning prompt row: %w", err)
		}
		var p schedule.Prompt
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decoding prompt: %w", err)
		}
		set.Prompts = append(set.Prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prompt rows: %w", err)
	}
	return set, nil
}

// SavePromptSet replaces the stored prompt set. The caller's Version must
// match the stored one; on success the version is bumped and written back
// into set.Version.
func (s *Store) SavePromptSet(ctx context.Context, set *PromptSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.promptSetVersion(ctx, tx)
	if err != nil {
		return err
	}
	if current != set.Version {
		return fmt.Errorf("%w: have %d, stored %d", ErrVersionConflict, set.Version, current)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_prompts`); err != nil {
		return fmt.Errorf("clearing prompts: %w", err)
	}

	for i, p := range set.Prompts {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding prompt %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scheduled_prompts (id, data, position, updated_at) VALUES (?, ?, ?, datetime('now'))`,
			p.ID, string(data), i); err != nil {
			return fmt.Errorf("inserting prompt %s: %w", p.ID, err)
		}
	}

	next := current + 1
	if _, err := tx.ExecContext(ctx,
		`UPDATE settings SET value = ?, updated_at = datetime('now') WHERE key = 'prompt_set_version'`,
		strconv.FormatInt(next, 10)); err != nil {
		return fmt.Errorf("bumping version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	set.Version = next
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) promptSetVersion(ctx context.Context, q querier) (int64, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = 'prompt_set_version'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading prompt set version: %w", err)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing prompt set version %q: %w", raw, err)
	}
	return v, nil
}

// Setting returns the value for key, or ErrNotFound.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: setting %q", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a settings key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

// RecordExecution appends one execution to the history and returns its id.
func (s *Store) RecordExecution(ctx context.Context, e *Execution) (int64, error) {
	completed := ""
	if !e.CompletedAt.IsZero() {
		completed = e.CompletedAt.UTC().Format(time.RFC3339)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO executions
		 (job_id, prompt_id, project, session_id, triggered_by, status, output, error,
		  cost_usd, turns, duration_ms, started_at, completed_at, has_pending_changes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobID, e.PromptID, e.Project, e.SessionID, e.Trigger, e.Status,
		e.Output, e.Error, e.CostUSD, e.Turns, e.Duration.Milliseconds(),
		e.StartedAt.UTC().Format(time.RFC3339), completed, boolToInt(e.HasPendingChanges))
	if err != nil {
		return 0, fmt.Errorf("recording execution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading execution id: %w", err)
	}
	e.ID = id
	return id, nil
}

// ListExecutions returns the most recent executions, newest first. An
// empty project matches all projects.
func (s *Store) ListExecutions(ctx context.Context, project string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, job_id, prompt_id, project, session_id, triggered_by, status,
		output, error, cost_usd, turns, duration_ms, started_at, completed_at, has_pending_changes
		FROM executions`
	args := []any{}
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return out, nil
}

// ExecutionByJob returns the execution recorded for one job id.
func (s *Store) ExecutionByJob(ctx context.Context, jobID string) (*Execution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, prompt_id, project, session_id, triggered_by, status,
		 output, error, cost_usd, turns, duration_ms, started_at, completed_at, has_pending_changes
		 FROM executions WHERE job_id = ? ORDER BY id DESC LIMIT 1`, jobID)
	if err != nil {
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating execution: %w", err)
		}
		return nil, fmt.Errorf("%w: job %q", ErrNotFound, jobID)
	}
	e, err := scanExecution(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanExecution(rows *sql.Rows) (Execution, error) {
	var (
		e          Execution
		durationMs int64
		started    string
		completed  string
		pending    int
	)
	if err := rows.Scan(&e.ID, &e.JobID, &e.PromptID, &e.Project, &e.SessionID,
		&e.Trigger, &e.Status, &e.Output, &e.Error, &e.CostUSD, &e.Turns,
		&durationMs, &started, &completed, &pending); err != nil {
		return Execution{}, fmt.Errorf("scanning execution: %w", err)
	}
	e.Duration = time.Duration(durationMs) * time.Millisecond
	e.HasPendingChanges = pending != 0
	if t, err := time.Parse(time.RFC3339, started); err == nil {
		e.StartedAt = t
	}
	if completed != "" {
		if t, err := time.Parse(time.RFC3339, completed); err == nil {
			e.CompletedAt = t
		}
	}
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
