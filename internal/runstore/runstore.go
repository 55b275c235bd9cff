// Package runstore persists one RunRecord per orchestration run: the
// input, final output (or failure reason), and timing, keyed by trace id.
// Queries are hand-written SQL against jackc/pgx/v5 rather than a generated
// query layer — the teacher's sqlc-backed internal/store was dropped along
// with the rest of the issue-tracking schema it served (see DESIGN.md), and
// a single table with three row-write paths does not earn a code generator.
package runstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskforge.dev/engine/internal/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a trace id has no recorded run.
var ErrNotFound = errors.New("run record not found")

// Status is the lifecycle state of a persisted run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// RunRecord is the persisted projection of one orchestration run.
type RunRecord struct {
	TraceID       string
	InputText     string
	Source        string
	Status        Status
	FinalOutput   string
	FailureReason string
	SubtaskCount  int
	DurationMS    int64
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Store persists RunRecords to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps a connection pool as a run Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the backing table if it doesn't already exist.
// Called once at process start, mirroring the teacher's migration-free
// bootstrap for small auxiliary tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS engine_runs (
	trace_id       TEXT PRIMARY KEY,
	input_text     TEXT NOT NULL,
	source         TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	final_output   TEXT NOT NULL DEFAULT '',
	failure_reason TEXT NOT NULL DEFAULT '',
	subtask_count  INTEGER NOT NULL DEFAULT 0,
	duration_ms    BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at   TIMESTAMPTZ
)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring engine_runs schema: %w", err)
	}
	return nil
}

// CreateQueued inserts a run record in the queued state, or is a no-op if
// one already exists for traceID (a requeue after a transient worker
// failure shares the same trace id).
func (s *Store) CreateQueued(ctx context.Context, traceID, inputText, source string) error {
	const q = `
INSERT INTO engine_runs (trace_id, input_text, source, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (trace_id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, q, traceID, inputText, source, StatusQueued); err != nil {
		return fmt.Errorf("recording queued run %s: %w", traceID, err)
	}
	return nil
}

// RecordCompletion writes a finished run's final output and plan size.
func (s *Store) RecordCompletion(ctx context.Context, traceID string, l *ledger.Ledger, duration time.Duration) error {
	const q = `
UPDATE engine_runs
SET status = $2, final_output = $3, subtask_count = $4, duration_ms = $5, completed_at = now()
WHERE trace_id = $1`
	_, err := s.pool.Exec(ctx, q, traceID, StatusCompleted, l.FinalOutput, len(l.Plan), duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("recording completed run %s: %w", traceID, err)
	}
	return nil
}

// RecordFailure writes a run that never reached a final answer.
func (s *Store) RecordFailure(ctx context.Context, traceID, reason string, duration time.Duration) error {
	const q = `
UPDATE engine_runs
SET status = $2, failure_reason = $3, duration_ms = $4, completed_at = now()
WHERE trace_id = $1`
	_, err := s.pool.Exec(ctx, q, traceID, StatusFailed, reason, duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("recording failed run %s: %w", traceID, err)
	}
	return nil
}

// Get fetches one RunRecord by trace id.
func (s *Store) Get(ctx context.Context, traceID string) (*RunRecord, error) {
	const q = `
SELECT trace_id, input_text, source, status, final_output, failure_reason, subtask_count, duration_ms, created_at, completed_at
FROM engine_runs
WHERE trace_id = $1`

	row := s.pool.QueryRow(ctx, q, traceID)

	var rec RunRecord
	var status string
	err := row.Scan(&rec.TraceID, &rec.InputText, &rec.Source, &status, &rec.FinalOutput,
		&rec.FailureReason, &rec.SubtaskCount, &rec.DurationMS, &rec.CreatedAt, &rec.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching run %s: %w", traceID, err)
	}
	rec.Status = Status(status)
	return &rec, nil
}
