package solvers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskweave/llm"
	"taskweave/prompts"
	"taskweave/schema"
	"taskweave/workflow"
)

// AggregatorSolver combines intermediate results into the proposed answer.
// It also answers an atomic solve root directly.
type AggregatorSolver struct {
	gen     llm.Generator
	prompts prompts.Filler
	opts    options
}

// NewAggregator creates the Aggregator solver.
func NewAggregator(gen llm.Generator, p prompts.Filler, opts ...Option) *AggregatorSolver {
	return &AggregatorSolver{gen: gen, prompts: p, opts: newOptions(prompts.Aggregate, opts)}
}

func (s *AggregatorSolver) Name() string { return AggregatorName }

func (s *AggregatorSolver) Description() string {
	return "Combines the results of earlier subtasks into the final answer. Always runs last."
}

func (s *AggregatorSolver) Version() string { return s.opts.version }

func (s *AggregatorSolver) InputSchema() schema.Schema {
	return schema.Object(schema.PropertyMap{
		"results": {
			Type:        schema.TypeArray,
			Description: "Ids of the subtasks whose results are combined",
			Items:       &schema.Property{Type: schema.TypeString},
		},
	})
}

func (s *AggregatorSolver) OutputSchema() schema.Schema { return resultSchema }

func (s *AggregatorSolver) Solve(ctx context.Context, state *workflow.State, task *workflow.Task) workflow.SolveStep {
	started := time.Now()

	var inputs []workflow.Var
	if task.Kind == workflow.KindTool && len(task.Inputs) > 0 {
		inputs = state.InputsFor(task)
	} else {
		inputs = state.Results()
	}

	prompt, err := s.prompts.Fill(s.opts.prompt, map[string]string{
		"user_request":         state.Request,
		"intermediate_results": formatResults(inputs),
	})
	if err != nil {
		return workflow.Failed(task, AggregatorName, started, inputs, err)
	}

	resp, err := s.gen.Generate(ctx, prompt, s.opts.maxTokens, s.opts.temperature)
	if err != nil {
		return workflow.Failed(task, AggregatorName, started, inputs, fmt.Errorf("generate: %w", err))
	}

	answer := workflow.ExtractCode(resp)
	if answer == "" {
		return workflow.Failed(task, AggregatorName, started, inputs, fmt.Errorf("empty answer"))
	}
	outputs := []workflow.Var{{Name: workflow.OutputResult, Description: "Aggregated answer", Value: answer}}
	return finish(task, AggregatorName, started, inputs, outputs, resultSchema)
}

func formatResults(results []workflow.Var) string {
	if len(results) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString("- ")
		b.WriteString(r.Name)
		if r.Description != "" && r.Description != "literal" {
			b.WriteString(" (" + r.Description + ")")
		}
		b.WriteString(": ")
		b.WriteString(r.Text())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
