package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Debug event types written to events.jsonl
const (
	EventRunStarted     = "run_started"
	EventPlanRequested  = "plan_requested"
	EventPlanFailed     = "plan_failed"
	EventPlanMerged     = "plan_merged"
	EventSolverSelected = "solver_selected"
	EventStepRecorded   = "step_recorded"
	EventRunCompleted   = "run_completed"
	EventRunAborted     = "run_aborted"
)

// EventLogger receives structured debug events from the executor.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any)
}

type nopEventLogger struct{}

func (nopEventLogger) LogEvent(string, map[string]any) {}

// DebugLogger writes executor events as JSON lines to <dir>/events.jsonl.
// A logger created with an empty dir is disabled and drops everything.
type DebugLogger struct {
	dir        string
	eventsFile *os.File
	mu         sync.Mutex
	enabled    bool
}

// NewDebugLogger creates a debug logger that writes to the specified directory
func NewDebugLogger(dir string) (*DebugLogger, error) {
	if dir == "" {
		return &DebugLogger{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating debug directory: %w", err)
	}

	eventsFile, err := os.Create(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("creating events file: %w", err)
	}

	return &DebugLogger{
		dir:        dir,
		eventsFile: eventsFile,
		enabled:    true,
	}, nil
}

// Close closes the events file
func (d *DebugLogger) Close() {
	if !d.enabled {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.eventsFile.Close()
}

// IsEnabled returns true if debug logging is enabled
func (d *DebugLogger) IsEnabled() bool {
	return d.enabled
}

// Dir returns the debug directory path
func (d *DebugLogger) Dir() string {
	return d.dir
}

// PromptLogFile is where the prompt logger should write model exchanges.
func (d *DebugLogger) PromptLogFile() string {
	if !d.enabled {
		return ""
	}
	return filepath.Join(d.dir, "prompts.jsonl")
}

// LogEvent appends one event line with a timestamp.
func (d *DebugLogger) LogEvent(eventType string, data map[string]any) {
	if !d.enabled {
		return
	}

	entry := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"event":     eventType,
	}
	for k, v := range data {
		entry[k] = v
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.eventsFile.Write(append(jsonBytes, '\n'))
}
