package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrPlanningParse = errors.New("planning response could not be parsed")
	ErrToolNotFound  = errors.New("tool not found")
	ErrTaskNotFound  = errors.New("task not found")
	ErrSolverFailed  = errors.New("solver failed")
	ErrStepLimit     = errors.New("step limit exceeded")
)

// PlanningParseError reports a decomposition response that is not the
// expected structure. Response holds the raw model output.
type PlanningParseError struct {
	Response string
	Reason   string
	Err      error
}

func (e *PlanningParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse plan: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse plan: %s", e.Reason)
}

func (e *PlanningParseError) Unwrap() error { return e.Err }

func (e *PlanningParseError) Is(target error) bool { return target == ErrPlanningParse }

// ToolNotFoundError reports a task whose tool has no registered solver.
type ToolNotFoundError struct {
	Tool   string
	TaskID string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("no solver named '%s' for task '%s'", e.Tool, e.TaskID)
}

func (e *ToolNotFoundError) Is(target error) bool { return target == ErrToolNotFound }

// TaskNotFoundError reports a lookup of a task that is not in the tree, or a
// tree with nothing left to run.
type TaskNotFoundError struct {
	TaskID string
	Reason string
}

func (e *TaskNotFoundError) Error() string {
	if e.TaskID == "" {
		return "task not found: " + e.Reason
	}
	return fmt.Sprintf("task '%s' not found: %s", e.TaskID, e.Reason)
}

func (e *TaskNotFoundError) Is(target error) bool { return target == ErrTaskNotFound }

// SolverExecutionFailure reports a step that completed without success.
type SolverExecutionFailure struct {
	TaskID string
	Solver string
	Err    error
}

func (e *SolverExecutionFailure) Error() string {
	return fmt.Sprintf("solver '%s' failed on task '%s': %v", e.Solver, e.TaskID, e.Err)
}

func (e *SolverExecutionFailure) Unwrap() error { return e.Err }

func (e *SolverExecutionFailure) Is(target error) bool { return target == ErrSolverFailed }

// StepLimitExceeded reports a run that used its whole step budget without finishing.
type StepLimitExceeded struct {
	MaxSteps int
	Steps    int
}

func (e *StepLimitExceeded) Error() string {
	return fmt.Sprintf("run did not finish within %d steps (%d recorded)", e.MaxSteps, e.Steps)
}

func (e *StepLimitExceeded) Is(target error) bool { return target == ErrStepLimit }

// TreeInvariantError is the panic value raised when a composite task is
// completed before its children.
type TreeInvariantError struct {
	TaskID string
	Reason string
}

func (e *TreeInvariantError) Error() string {
	return fmt.Sprintf("cannot complete task '%s': %s", e.TaskID, e.Reason)
}
