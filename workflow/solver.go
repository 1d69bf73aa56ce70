package workflow

import (
	"context"

	"taskweave/schema"
)

// Solver is a registered capability that executes one task. Name,
// Description and the schemas are what the planner sees. Solve reads only
// its declared inputs from state and never writes to it; the executor folds
// the returned outputs once the step succeeds.
type Solver interface {
	Name() string
	Description() string
	Version() string
	InputSchema() schema.Schema
	OutputSchema() schema.Schema
	Solve(ctx context.Context, state *State, task *Task) SolveStep
}

// Strategy plans and schedules a run.
type Strategy interface {
	// DecomposeTask proposes subtasks for the solve root. An empty plan
	// means there is nothing to expand.
	DecomposeTask(ctx context.Context, state *State, solvers []Solver) (Plan, error)

	// NextSolver picks the next runnable task and the solver for it.
	NextSolver(ctx context.Context, state *State, solvers []Solver) (*Task, Solver, error)
}

// FindSolver returns the solver whose name is exactly name.
func FindSolver(solvers []Solver, name string) (Solver, bool) {
	for _, s := range solvers {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}
