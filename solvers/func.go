package solvers

import (
	"context"
	"time"

	"taskweave/schema"
	"taskweave/workflow"
)

// Func is the body of a FuncSolver. It receives the task inputs joined into
// one string.
type Func func(ctx context.Context, input string) (string, error)

// FuncSolver wraps a plain function as a solver with a single result output.
type FuncSolver struct {
	name        string
	description string
	version     string
	input       schema.Schema
	fn          Func
}

// NewFuncSolver creates a solver named name that runs fn.
func NewFuncSolver(name, description string, fn Func) *FuncSolver {
	return &FuncSolver{
		name:        name,
		description: description,
		version:     defaultVersion,
		input:       textInputSchema,
		fn:          fn,
	}
}

// WithInputSchema replaces the advertised input schema.
func (s *FuncSolver) WithInputSchema(in schema.Schema) *FuncSolver {
	s.input = in
	return s
}

// Rename changes the name the planner sees. An empty description keeps the
// current one.
func (s *FuncSolver) Rename(name, description string) *FuncSolver {
	if name != "" {
		s.name = name
	}
	if description != "" {
		s.description = description
	}
	return s
}

// WithVersion overrides the reported version.
func (s *FuncSolver) WithVersion(v string) *FuncSolver {
	if v != "" {
		s.version = v
	}
	return s
}

func (s *FuncSolver) Name() string                { return s.name }
func (s *FuncSolver) Description() string         { return s.description }
func (s *FuncSolver) Version() string             { return s.version }
func (s *FuncSolver) InputSchema() schema.Schema  { return s.input }
func (s *FuncSolver) OutputSchema() schema.Schema { return resultSchema }

func (s *FuncSolver) Solve(ctx context.Context, state *workflow.State, task *workflow.Task) workflow.SolveStep {
	started := time.Now()
	inputs := taskInputs(state, task)

	out, err := s.fn(ctx, joinInputs(inputs))
	if err != nil {
		return workflow.Failed(task, s.name, started, inputs, err)
	}
	outputs := []workflow.Var{{Name: workflow.OutputResult, Description: s.description, Value: out}}
	return finish(task, s.name, started, inputs, outputs, resultSchema)
}
