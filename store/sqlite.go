package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    request TEXT NOT NULL,
    status TEXT DEFAULT 'running',
    result TEXT,
    error TEXT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_steps (
    run_id TEXT NOT NULL REFERENCES runs(id),
    step_index INTEGER NOT NULL,
    task_id TEXT NOT NULL,
    task_name TEXT,
    solver TEXT NOT NULL,
    inputs_json TEXT,
    outputs_json TEXT,
    duration_ms INTEGER,
    success INTEGER NOT NULL,
    error TEXT,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (run_id, step_index)
);

CREATE TABLE IF NOT EXISTS run_events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    run_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    task_id TEXT,
    name TEXT,
    text TEXT,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
`

// NewSQLiteBundle creates a Bundle backed by SQLite at the given path
func NewSQLiteBundle(dbPath string) (*Bundle, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Bundle{
		Runs:   &SQLiteRunStore{db: db},
		closer: db.Close,
	}, nil
}

// SQLiteRunStore persists runs in a SQLite database.
type SQLiteRunStore struct {
	db *sql.DB
}

func (s *SQLiteRunStore) CreateRun(request string) (string, error) {
	id := generateID()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, request, status, started_at) VALUES (?, ?, ?, ?)`,
		id, request, StatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

func (s *SQLiteRunStore) CompleteRun(id, status string, result, errMsg *string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, result = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, result, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

const runColumns = `r.id, r.request, r.status, r.result, r.error, r.started_at, r.finished_at,
    (SELECT COUNT(*) FROM run_steps s WHERE s.run_id = r.id)`

func scanRun(row interface{ Scan(...any) error }) (*RunInfo, error) {
	var (
		info     RunInfo
		result   sql.NullString
		errMsg   sql.NullString
		finished sql.NullTime
	)
	if err := row.Scan(&info.ID, &info.Request, &info.Status, &result, &errMsg, &info.StartedAt, &finished, &info.StepCount); err != nil {
		return nil, err
	}
	if result.Valid {
		info.Result = &result.String
	}
	if errMsg.Valid {
		info.Error = &errMsg.String
	}
	if finished.Valid {
		info.FinishedAt = &finished.Time
	}
	return &info, nil
}

func (s *SQLiteRunStore) GetRun(id string) (*RunInfo, error) {
	info, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return info, nil
}

func (s *SQLiteRunStore) ListRuns(limit, offset int) ([]RunInfo, int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC, r.rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *info)
	}
	return runs, total, rows.Err()
}

func (s *SQLiteRunStore) AppendStep(runID string, step StepRecord) error {
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO run_steps (run_id, step_index, task_id, task_name, solver, inputs_json, outputs_json, duration_ms, success, error, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, step.Index, step.TaskID, step.TaskName, step.Solver, step.InputsJSON, step.OutputsJSON,
		step.DurationMs, step.Success, step.Error, step.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append step: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) GetSteps(runID string) ([]StepRecord, error) {
	rows, err := s.db.Query(
		`SELECT step_index, task_id, task_name, solver, inputs_json, outputs_json, duration_ms, success, error, created_at
         FROM run_steps WHERE run_id = ? ORDER BY step_index`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get steps: %w", err)
	}
	defer rows.Close()

	steps := []StepRecord{}
	for rows.Next() {
		var (
			step   StepRecord
			name   sql.NullString
			in     sql.NullString
			out    sql.NullString
			errMsg sql.NullString
		)
		if err := rows.Scan(&step.Index, &step.TaskID, &name, &step.Solver, &in, &out, &step.DurationMs, &step.Success, &errMsg, &step.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.TaskName, step.InputsJSON, step.OutputsJSON, step.Error = name.String, in.String, out.String, errMsg.String
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (s *SQLiteRunStore) StoreEvent(event EventRecord) error {
	if event.ID == "" {
		event.ID = generateID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO run_events (id, run_id, event_type, task_id, name, text, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.RunID, event.EventType, event.TaskID, event.Name, event.Text, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) GetEvents(runID string, limit, offset int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, run_id, event_type, task_id, name, text, created_at
         FROM run_events WHERE run_id = ? ORDER BY seq LIMIT ? OFFSET ?`,
		runID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var (
			e                  EventRecord
			taskID, name, text sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.EventType, &taskID, &name, &text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.TaskID, e.Name, e.Text = taskID.String, name.String, text.String
		events = append(events, e)
	}
	return events, rows.Err()
}
