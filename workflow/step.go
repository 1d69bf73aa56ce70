package workflow

import (
	"time"
)

// SolveStep records one solver invocation: what it read, what it produced,
// how long it took and whether it succeeded. Steps are never modified after
// they are recorded.
type SolveStep struct {
	Task     Task          `json:"task"`
	Solver   string        `json:"solver"`
	Inputs   []Var         `json:"inputs"`
	Outputs  []Var         `json:"outputs"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Err      error         `json:"-"`
}

// Millis is the execution time in milliseconds.
func (s SolveStep) Millis() int64 {
	return s.Duration.Milliseconds()
}

// Output returns the named output value.
func (s SolveStep) Output(name string) (Var, bool) {
	for _, v := range s.Outputs {
		if v.Name == name {
			return v, true
		}
	}
	return Var{}, false
}

// ErrorText is the failure message, empty for successful steps.
func (s SolveStep) ErrorText() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Succeeded builds a successful step for task timed from started.
func Succeeded(task *Task, solver string, started time.Time, inputs, outputs []Var) SolveStep {
	return SolveStep{
		Task:     *task.clone(),
		Solver:   solver,
		Inputs:   inputs,
		Outputs:  outputs,
		Started:  started,
		Duration: time.Since(started),
		Success:  true,
	}
}

// Failed builds a failed step for task timed from started.
func Failed(task *Task, solver string, started time.Time, inputs []Var, err error) SolveStep {
	return SolveStep{
		Task:     *task.clone(),
		Solver:   solver,
		Inputs:   inputs,
		Started:  started,
		Duration: time.Since(started),
		Err:      err,
	}
}
