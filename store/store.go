package store

import (
	"errors"
	"math/rand"
	"time"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Bundle holds the stores used to persist run history.
type Bundle struct {
	Runs   RunStore
	closer func() error
}

// Close cleans up the bundle resources
func (b *Bundle) Close() error {
	if b.closer != nil {
		return b.closer()
	}
	return nil
}

// RunStore records runs, their solve steps and their progress events.
type RunStore interface {
	CreateRun(request string) (id string, err error)
	CompleteRun(id, status string, result, errMsg *string) error
	GetRun(id string) (*RunInfo, error)
	ListRuns(limit, offset int) ([]RunInfo, int, error)

	AppendStep(runID string, step StepRecord) error
	GetSteps(runID string) ([]StepRecord, error)

	StoreEvent(event EventRecord) error
	GetEvents(runID string, limit, offset int) ([]EventRecord, error)
}

// RunInfo describes one run
type RunInfo struct {
	ID         string     `json:"id"`
	Request    string     `json:"request"`
	Status     string     `json:"status"`
	Result     *string    `json:"result,omitempty"`
	Error      *string    `json:"error,omitempty"`
	StepCount  int        `json:"stepCount"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// StepRecord is one persisted solve step. Inputs and outputs are stored as
// JSON so the store does not depend on the engine's types.
type StepRecord struct {
	Index       int       `json:"index"`
	TaskID      string    `json:"taskId"`
	TaskName    string    `json:"taskName"`
	Solver      string    `json:"solver"`
	InputsJSON  string    `json:"inputsJson"`
	OutputsJSON string    `json:"outputsJson"`
	DurationMs  int64     `json:"durationMs"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EventRecord is one persisted progress event.
type EventRecord struct {
	ID        string    `json:"id"`
	RunID     string    `json:"runId"`
	EventType string    `json:"eventType"`
	TaskID    string    `json:"taskId,omitempty"`
	Name      string    `json:"name,omitempty"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func generateID() string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}

// page applies limit and offset to n items and returns the slice bounds.
func page(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
