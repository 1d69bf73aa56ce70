package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"taskweave/streamers"
)

// DefaultMaxSteps bounds a run when no WithMaxSteps option is given.
const DefaultMaxSteps = 8

// Executor drives a run: plan, select, solve, check, until the tree is done
// or the step budget runs out.
type Executor struct {
	strategy    Strategy
	solvers     []Solver
	maxSteps    int
	planRetries int
	logger      hclog.Logger
	events      EventLogger
	observer    func(index int, step SolveStep)
}

// Option configures an Executor
type Option func(*Executor)

// WithMaxSteps sets the iteration ceiling. Values below 1 are ignored.
func WithMaxSteps(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithPlanRetries sets how many times a failed decomposition is retried.
func WithPlanRetries(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.planRetries = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l hclog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEventLogger sets the sink for debug events.
func WithEventLogger(l EventLogger) Option {
	return func(e *Executor) {
		if l != nil {
			e.events = l
		}
	}
}

// WithStepObserver registers fn to be called after every recorded step with
// its index in the history.
func WithStepObserver(fn func(index int, step SolveStep)) Option {
	return func(e *Executor) {
		e.observer = fn
	}
}

// NewExecutor creates an executor over a fixed solver registry.
func NewExecutor(strategy Strategy, solvers []Solver, opts ...Option) *Executor {
	e := &Executor{
		strategy:    strategy,
		solvers:     solvers,
		maxSteps:    DefaultMaxSteps,
		planRetries: 1,
		logger:      hclog.NewNullLogger(),
		events:      nopEventLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// With returns a copy of the executor with opts applied on top of its
// current settings.
func (e *Executor) With(opts ...Option) *Executor {
	c := *e
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Solvers returns the registry the executor was built with.
func (e *Executor) Solvers() []Solver {
	return e.solvers
}

// MaxSteps returns the iteration ceiling.
func (e *Executor) MaxSteps() int {
	return e.maxSteps
}

// Run answers request. The returned state is always non-nil so callers can
// inspect the history of an aborted run. Planning and selection errors abort
// immediately; solver failures are recorded and the loop continues.
func (e *Executor) Run(ctx context.Context, request string, handler streamers.RunHandler) (*State, error) {
	if handler == nil {
		handler = streamers.Nop()
	}

	state := NewState(request)
	handler.User(request)
	e.logger.Info("run started", "max_steps", e.maxSteps, "solvers", len(e.solvers))
	e.events.LogEvent(EventRunStarted, map[string]any{"request": request, "max_steps": e.maxSteps})

	for step := 1; step <= e.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return state, e.abort(handler, state, err)
		}
		handler.Progress(fmt.Sprintf("Step %d of %d", step, e.maxSteps))

		if err := e.plan(ctx, state, handler); err != nil {
			return state, e.abort(handler, state, err)
		}

		task, solver, err := e.strategy.NextSolver(ctx, state, e.solvers)
		if err != nil {
			return state, e.abort(handler, state, err)
		}
		e.logger.Debug("solver selected", "step", step, "task", task.ID, "solver", solver.Name())
		e.events.LogEvent(EventSolverSelected, map[string]any{"step": step, "task": task.ID, "solver": solver.Name()})

		handler.UsingTool(solver.Name(), describeInputs(state, task))
		result := e.solve(ctx, state, task, solver)

		if err := state.Record(result); err != nil {
			return state, e.abort(handler, state, err)
		}
		e.events.LogEvent(EventStepRecorded, map[string]any{
			"step":        step,
			"task":        task.ID,
			"solver":      result.Solver,
			"success":     result.Success,
			"duration_ms": result.Millis(),
			"error":       result.ErrorText(),
		})
		if e.observer != nil {
			e.observer(len(state.History)-1, result)
		}

		if result.Success {
			handler.ToolResult(solver.Name(), FormatVars(result.Outputs))
		} else {
			failure := &SolverExecutionFailure{TaskID: task.ID, Solver: solver.Name(), Err: result.Err}
			e.logger.Warn("step failed", "step", step, "task", task.ID, "solver", solver.Name(), "error", result.Err)
			handler.Error(failure)
		}

		if state.CheckDone() {
			final, _ := state.FinalResult()
			e.logger.Info("run completed", "steps", len(state.History))
			e.events.LogEvent(EventRunCompleted, map[string]any{"steps": len(state.History)})
			handler.Response(final)
			return state, nil
		}
	}

	return state, e.abort(handler, state, &StepLimitExceeded{MaxSteps: e.maxSteps, Steps: len(state.History)})
}

// plan asks the strategy for a decomposition, retrying failures, and merges
// a non-empty plan into the state.
func (e *Executor) plan(ctx context.Context, state *State, handler streamers.RunHandler) error {
	var (
		plan Plan
		err  error
	)
	for attempt := 0; attempt <= e.planRetries; attempt++ {
		plan, err = e.strategy.DecomposeTask(ctx, state, e.solvers)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return err
		}
		e.logger.Warn("decomposition failed", "attempt", attempt+1, "error", err)
		e.events.LogEvent(EventPlanFailed, map[string]any{"attempt": attempt + 1, "error": err.Error()})
	}
	if err != nil {
		return err
	}

	if root := state.SolveRoot(); root != nil {
		state.MarkPlanned(root.Root.ID)
	}
	if len(plan) == 0 {
		return nil
	}

	if err := state.UpdateTasking(plan); err != nil {
		return err
	}
	count := 0
	for _, sub := range plan {
		for _, child := range sub.Children {
			handler.PlanningTask(child.Root.ID, child.Root.Label())
			count++
		}
	}
	e.logger.Info("plan merged", "subtasks", count, "leaves", len(state.Tree.Leaves()))
	e.events.LogEvent(EventPlanMerged, map[string]any{"subtasks": count})
	return nil
}

// solve runs the solver and normalizes the step it returns.
func (e *Executor) solve(ctx context.Context, state *State, task *Task, solver Solver) SolveStep {
	result := solver.Solve(ctx, state, task)
	if result.Task.ID == "" {
		result.Task = *task.clone()
	}
	if result.Solver == "" {
		result.Solver = solver.Name()
	}
	if !result.Success && result.Err == nil {
		result.Err = errors.New("solver reported failure")
	}
	return result
}

func (e *Executor) abort(handler streamers.RunHandler, state *State, err error) error {
	e.logger.Error("run aborted", "steps", len(state.History), "error", err)
	e.events.LogEvent(EventRunAborted, map[string]any{"steps": len(state.History), "error": err.Error()})
	handler.Error(err)
	return err
}

func describeInputs(state *State, task *Task) string {
	if task.Kind == KindTool && len(task.Inputs) > 0 {
		return FormatVars(state.InputsFor(task))
	}
	return task.Label()
}
