// Package planner implements the model-driven execution strategy: one
// decomposition call per solve root, then depth-first dispatch.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"taskweave/llm"
	"taskweave/prompts"
	"taskweave/solvers"
	"taskweave/workflow"
)

const (
	defaultMaxTokens   = 2000
	defaultTemperature = 0.0

	aggregateTaskID = "aggregate"
)

// ChatStrategy asks a generator to decompose the request into tool tasks and
// schedules them in tree order, followed by the aggregator and the validator.
type ChatStrategy struct {
	gen         llm.Generator
	prompts     prompts.Filler
	promptID    string
	maxTokens   int
	temperature float64
	logger      hclog.Logger
	events      workflow.EventLogger
}

// Option configures a ChatStrategy
type Option func(*ChatStrategy)

// WithPrompt selects a different planner template.
func WithPrompt(id string) Option {
	return func(c *ChatStrategy) {
		if id != "" {
			c.promptID = id
		}
	}
}

// WithMaxTokens caps the planning response length.
func WithMaxTokens(n int) Option {
	return func(c *ChatStrategy) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTemperature sets the planning temperature.
func WithTemperature(t float64) Option {
	return func(c *ChatStrategy) { c.temperature = t }
}

// WithLogger sets the structured logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *ChatStrategy) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEventLogger sets the debug event sink.
func WithEventLogger(l workflow.EventLogger) Option {
	return func(c *ChatStrategy) {
		if l != nil {
			c.events = l
		}
	}
}

// NewChatStrategy creates the strategy.
func NewChatStrategy(gen llm.Generator, p prompts.Filler, opts ...Option) *ChatStrategy {
	c := &ChatStrategy{
		gen:         gen,
		prompts:     p,
		promptID:    prompts.Planner,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		logger:      hclog.NewNullLogger(),
		events:      noEvents{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type noEvents struct{}

func (noEvents) LogEvent(string, map[string]any) {}

// DecomposeTask proposes children for the solve root. It returns an empty
// plan once the root has children or has been planned, and when the model
// judges the request atomic.
func (c *ChatStrategy) DecomposeTask(ctx context.Context, state *workflow.State, available []workflow.Solver) (workflow.Plan, error) {
	root := state.SolveRoot()
	if root == nil {
		return nil, &workflow.TaskNotFoundError{Reason: "tree has no solve root"}
	}
	if !root.IsLeaf() || root.Done() || state.IsPlanned(root.Root.ID) {
		return nil, nil
	}

	prompt, err := c.prompts.Fill(c.promptID, map[string]string{
		"user_request": state.Request,
		"tools":        describeTools(available),
	})
	if err != nil {
		return nil, err
	}

	c.events.LogEvent(workflow.EventPlanRequested, map[string]any{"task": root.Root.ID, "tools": len(available)})
	resp, err := c.gen.Generate(ctx, prompt, c.maxTokens, c.temperature)
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	raw, err := ParsePlan(resp)
	if err != nil {
		return nil, err
	}
	if raw.IsAtomic(state.Request) {
		c.logger.Info("request is atomic, solving directly", "task", root.Root.ID)
		return nil, nil
	}

	c.logger.Debug("plan parsed", "problem", raw.Problem, "subtasks", len(raw.Subtasks))
	return workflow.Plan{buildSubtree(root.Root, raw)}, nil
}

// buildSubtree turns a parsed plan into the new children of root, with the
// aggregator task appended last.
func buildSubtree(root *workflow.Task, raw *RawPlan) *workflow.TaskTree {
	children := make([]*workflow.TaskTree, 0, len(raw.Subtasks)+1)
	ids := make(map[string]bool, len(raw.Subtasks))
	for _, sub := range raw.Subtasks {
		ids[sub.ID] = true
		children = append(children, workflow.NewTaskTree(
			workflow.NewToolTask(sub.ID, sub.ID, sub.Task, sub.Tool, sub.Inputs),
		))
	}

	description := "Combine the results into the final answer"
	inputs := raw.SubtaskIDs()
	if raw.FinalResponse != nil {
		if strings.TrimSpace(raw.FinalResponse.Task) != "" {
			description = raw.FinalResponse.Task
		}
		if len(raw.FinalResponse.Inputs) > 0 {
			inputs = raw.FinalResponse.Inputs
		}
	}

	aggID := aggregateTaskID
	if ids[aggID] {
		aggID = ""
	}
	children = append(children, workflow.NewTaskTree(
		workflow.NewToolTask(aggID, "Aggregate", description, solvers.AggregatorName, inputs),
	))

	planned := *root
	planned.Done = false
	return workflow.NewTaskTree(&planned, children...)
}

// NextSolver returns the first unfinished tool task in depth-first order,
// then an atomic solve root, then the validator.
func (c *ChatStrategy) NextSolver(_ context.Context, state *workflow.State, available []workflow.Solver) (*workflow.Task, workflow.Solver, error) {
	if node := state.Tree.FindTask(func(t *workflow.Task) bool {
		return t.Kind == workflow.KindTool && !t.Done
	}); node != nil {
		return lookup(node.Root, node.Root.Tool, available)
	}

	if root := state.SolveRoot(); root != nil && root.IsLeaf() && !root.Done() {
		return lookup(root.Root, solvers.AggregatorName, available)
	}

	if v := state.Validator(); v != nil && !v.Done() {
		return lookup(v.Root, solvers.ValidatorName, available)
	}

	return nil, nil, &workflow.TaskNotFoundError{Reason: "no runnable task left in the tree"}
}

func lookup(task *workflow.Task, name string, available []workflow.Solver) (*workflow.Task, workflow.Solver, error) {
	s, ok := workflow.FindSolver(available, name)
	if !ok {
		return nil, nil, &workflow.ToolNotFoundError{Tool: name, TaskID: task.ID}
	}
	return task, s, nil
}

// describeTools lists the solvers a plan may use, one "name: description"
// line each. The aggregator and validator are scheduled automatically and
// are left out.
func describeTools(available []workflow.Solver) string {
	var b strings.Builder
	for _, s := range available {
		if s.Name() == solvers.AggregatorName || s.Name() == solvers.ValidatorName {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", s.Name(), s.Description())
	}
	if b.Len() == 0 {
		return "(no tools available)"
	}
	return strings.TrimRight(b.String(), "\n")
}
