package solvers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskweave/llm"
	"taskweave/prompts"
	"taskweave/schema"
	"taskweave/workflow"
)

// InstructSolver answers a task by sending a fixed instruction and the task
// inputs to a generator.
type InstructSolver struct {
	name        string
	description string
	instruction string
	gen         llm.Generator
	prompts     prompts.Filler
	opts        options
}

// NewInstructSolver creates a solver that fills the instruct prompt with
// instruction and the resolved inputs.
func NewInstructSolver(name, description, instruction string, gen llm.Generator, p prompts.Filler, opts ...Option) *InstructSolver {
	return &InstructSolver{
		name:        name,
		description: description,
		instruction: instruction,
		gen:         gen,
		prompts:     p,
		opts:        newOptions(prompts.Instruct, opts),
	}
}

func (s *InstructSolver) Name() string                { return s.name }
func (s *InstructSolver) Description() string         { return s.description }
func (s *InstructSolver) Version() string             { return s.opts.version }
func (s *InstructSolver) InputSchema() schema.Schema  { return textInputSchema }
func (s *InstructSolver) OutputSchema() schema.Schema { return resultSchema }

func (s *InstructSolver) Solve(ctx context.Context, state *workflow.State, task *workflow.Task) workflow.SolveStep {
	started := time.Now()
	inputs := taskInputs(state, task)

	input := joinInputs(inputs)
	if task.Kind == workflow.KindTool && task.Tool == s.name && len(task.Inputs) > 0 {
		// Tasks outside the tree keep their directly resolved inputs.
		values, err := state.AggregateInputsFor(s.name)
		switch {
		case err == nil:
			input = joinValues(task.Inputs, values)
		case !errors.Is(err, workflow.ErrTaskNotFound):
			return workflow.Failed(task, s.name, started, inputs, err)
		}
	}

	prompt, err := s.prompts.Fill(s.opts.prompt, map[string]string{
		"instruction": s.instruction,
		"input":       input,
	})
	if err != nil {
		return workflow.Failed(task, s.name, started, inputs, err)
	}

	resp, err := s.gen.Generate(ctx, prompt, s.opts.maxTokens, s.opts.temperature)
	if err != nil {
		return workflow.Failed(task, s.name, started, inputs, fmt.Errorf("generate: %w", err))
	}

	answer := workflow.ExtractCode(resp)
	if answer == "" {
		return workflow.Failed(task, s.name, started, inputs, fmt.Errorf("empty response"))
	}
	outputs := []workflow.Var{{Name: workflow.OutputResult, Description: s.description, Value: answer}}
	return finish(task, s.name, started, inputs, outputs, resultSchema)
}
