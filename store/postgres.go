package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
    seq BIGSERIAL UNIQUE,
    id TEXT PRIMARY KEY,
    request TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running',
    result TEXT,
    error TEXT,
    started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_steps (
    run_id TEXT NOT NULL REFERENCES runs(id),
    step_index INTEGER NOT NULL,
    task_id TEXT NOT NULL,
    task_name TEXT NOT NULL DEFAULT '',
    solver TEXT NOT NULL,
    inputs_json TEXT NOT NULL DEFAULT '',
    outputs_json TEXT NOT NULL DEFAULT '',
    duration_ms BIGINT NOT NULL DEFAULT 0,
    success BOOLEAN NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, step_index)
);

CREATE TABLE IF NOT EXISTS run_events (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    run_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    task_id TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
`

const postgresTimeout = 10 * time.Second

// NewPostgresBundle connects to dsn and prepares the schema.
func NewPostgresBundle(ctx context.Context, dsn string) (*Bundle, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Bundle{
		Runs: NewPostgresRunStore(pool),
		closer: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

// PostgresRunStore persists runs in PostgreSQL. Each call runs under its own
// timeout.
type PostgresRunStore struct {
	db *pgxpool.Pool
}

// NewPostgresRunStore wraps an existing pool. The schema must already exist.
func NewPostgresRunStore(db *pgxpool.Pool) *PostgresRunStore {
	return &PostgresRunStore{db: db}
}

func (s *PostgresRunStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), postgresTimeout)
}

func (s *PostgresRunStore) CreateRun(request string) (string, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	id := generateID()
	_, err := s.db.Exec(ctx, "INSERT INTO runs (id, request, status, started_at) VALUES ($1, $2, $3, $4)",
		id, request, StatusRunning, time.Now())
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

func (s *PostgresRunStore) CompleteRun(id, status string, result, errMsg *string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	tag, err := s.db.Exec(ctx, "UPDATE runs SET status = $1, result = $2, error = $3, finished_at = $4 WHERE id = $5",
		status, result, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

const pgRunColumns = `r.id, r.request, r.status, r.result, r.error, r.started_at, r.finished_at,
    (SELECT COUNT(*) FROM run_steps s WHERE s.run_id = r.id)`

func scanPgRun(row pgx.Row) (*RunInfo, error) {
	var (
		info  RunInfo
		count int64
	)
	if err := row.Scan(&info.ID, &info.Request, &info.Status, &info.Result, &info.Error, &info.StartedAt, &info.FinishedAt, &count); err != nil {
		return nil, err
	}
	info.StepCount = int(count)
	return &info, nil
}

func (s *PostgresRunStore) GetRun(id string) (*RunInfo, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	info, err := scanPgRun(s.db.QueryRow(ctx, "SELECT "+pgRunColumns+" FROM runs r WHERE r.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return info, nil
}

func (s *PostgresRunStore) ListRuns(limit, offset int) ([]RunInfo, int, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var total int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.db.Query(ctx,
		"SELECT "+pgRunColumns+" FROM runs r ORDER BY r.started_at DESC, r.seq DESC LIMIT $1 OFFSET $2",
		limitArg, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		info, err := scanPgRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *info)
	}
	return runs, int(total), rows.Err()
}

func (s *PostgresRunStore) AppendStep(runID string, step StepRecord) error {
	ctx, cancel := s.ctx()
	defer cancel()

	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO run_steps (run_id, step_index, task_id, task_name, solver, inputs_json, outputs_json, duration_ms, success, error, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		runID, step.Index, step.TaskID, step.TaskName, step.Solver, step.InputsJSON, step.OutputsJSON,
		step.DurationMs, step.Success, step.Error, step.CreatedAt)
	if err != nil {
		return fmt.Errorf("append step: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) GetSteps(runID string) ([]StepRecord, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT step_index, task_id, task_name, solver, inputs_json, outputs_json, duration_ms, success, error, created_at
         FROM run_steps WHERE run_id = $1 ORDER BY step_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("get steps: %w", err)
	}
	defer rows.Close()

	steps := []StepRecord{}
	for rows.Next() {
		var step StepRecord
		if err := rows.Scan(&step.Index, &step.TaskID, &step.TaskName, &step.Solver, &step.InputsJSON, &step.OutputsJSON,
			&step.DurationMs, &step.Success, &step.Error, &step.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (s *PostgresRunStore) StoreEvent(event EventRecord) error {
	ctx, cancel := s.ctx()
	defer cancel()

	if event.ID == "" {
		event.ID = generateID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(ctx,
		"INSERT INTO run_events (id, run_id, event_type, task_id, name, text, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		event.ID, event.RunID, event.EventType, event.TaskID, event.Name, event.Text, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) GetEvents(runID string, limit, offset int) ([]EventRecord, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, run_id, event_type, task_id, name, text, created_at
         FROM run_events WHERE run_id = $1 ORDER BY seq LIMIT $2 OFFSET $3`,
		runID, limitArg, offset)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var e EventRecord
		if err := rows.Scan(&e.ID, &e.RunID, &e.EventType, &e.TaskID, &e.Name, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
