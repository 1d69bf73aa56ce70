package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"taskweave/store"
	"taskweave/streamers"
)

// Runner executes requests and keeps a record of each run: the run row, every
// progress event and every solve step.
type Runner struct {
	exec   *Executor
	runs   store.RunStore
	logger hclog.Logger
}

// NewRunner wraps exec so that its runs are persisted in runs.
func NewRunner(exec *Executor, runs store.RunStore, logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{exec: exec, runs: runs, logger: logger}
}

// Executor returns the wrapped executor.
func (r *Runner) Executor() *Executor {
	return r.exec
}

// Run answers request like Executor.Run and returns the id of the stored run.
// Store failures while the run is in flight are logged, not returned.
func (r *Runner) Run(ctx context.Context, request string, handler streamers.RunHandler) (string, *State, error) {
	runID, err := r.runs.CreateRun(request)
	if err != nil {
		return "", nil, fmt.Errorf("create run: %w", err)
	}
	logger := r.logger.With("run", runID)

	prev := r.exec.observer
	exec := r.exec.With(WithLogger(r.exec.logger.With("run", runID)), WithStepObserver(func(index int, step SolveStep) {
		if prev != nil {
			prev(index, step)
		}
		if err := r.runs.AppendStep(runID, NewStepRecord(index, step)); err != nil {
			logger.Warn("failed to store step", "index", index, "error", err)
		}
	}))

	state, runErr := exec.Run(ctx, request, streamers.NewStoringHandler(handler, r.runs, runID, logger))

	status, result, errMsg := outcome(state, runErr)
	if err := r.runs.CompleteRun(runID, status, result, errMsg); err != nil {
		logger.Warn("failed to complete run", "error", err)
	}
	return runID, state, runErr
}

func outcome(state *State, runErr error) (string, *string, *string) {
	if runErr != nil {
		msg := runErr.Error()
		return store.StatusFailed, nil, &msg
	}
	if v, ok := state.Validation(); ok && !v.Answered {
		rationale := v.Rationale
		if v.Result == "" {
			return store.StatusRejected, nil, &rationale
		}
		rejected := v.Result
		return store.StatusRejected, &rejected, &rationale
	}
	if final, ok := state.FinalResult(); ok {
		return store.StatusCompleted, &final, nil
	}
	return store.StatusCompleted, nil, nil
}

// NewStepRecord converts a step for the store.
func NewStepRecord(index int, step SolveStep) store.StepRecord {
	return store.StepRecord{
		Index:       index,
		TaskID:      step.Task.ID,
		TaskName:    step.Task.Label(),
		Solver:      step.Solver,
		InputsJSON:  varsJSON(step.Inputs),
		OutputsJSON: varsJSON(step.Outputs),
		DurationMs:  step.Millis(),
		Success:     step.Success,
		Error:       step.ErrorText(),
		CreatedAt:   step.Started,
	}
}

func varsJSON(vars []Var) string {
	if len(vars) == 0 {
		return "[]"
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return "[]"
	}
	return string(b)
}
