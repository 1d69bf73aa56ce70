package solvers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskweave/llm"
	"taskweave/prompts"
	"taskweave/schema"
	"taskweave/workflow"
)

// ValidatorSolver asks the generator whether the proposed result answers the
// request. The verdict is recorded either way; a rejection does not fail the step.
type ValidatorSolver struct {
	gen     llm.Generator
	prompts prompts.Filler
	opts    options
}

// NewValidator creates the Validator solver.
func NewValidator(gen llm.Generator, p prompts.Filler, opts ...Option) *ValidatorSolver {
	return &ValidatorSolver{gen: gen, prompts: p, opts: newOptions(prompts.Validate, opts)}
}

func (s *ValidatorSolver) Name() string { return ValidatorName }

func (s *ValidatorSolver) Description() string {
	return "Checks that the proposed result answers the user request."
}

func (s *ValidatorSolver) Version() string { return s.opts.version }

func (s *ValidatorSolver) InputSchema() schema.Schema {
	return schema.Object(schema.PropertyMap{
		"proposed_result": {Type: schema.TypeString, Description: "The answer to check"},
	}, "proposed_result")
}

var verdictSchema = schema.Object(schema.PropertyMap{
	workflow.OutputAnswered:        {Type: schema.TypeBoolean, Description: "Whether the request is answered"},
	workflow.OutputRationale:       {Type: schema.TypeString, Description: "Why"},
	workflow.OutputValidatedResult: {Type: schema.TypeString, Description: "The proposed result, unchanged"},
}, workflow.OutputAnswered, workflow.OutputValidatedResult)

func (s *ValidatorSolver) OutputSchema() schema.Schema { return verdictSchema }

type verdict struct {
	IsRequestAnswered *bool  `json:"isRequestAnswered"`
	Rationale         string `json:"rationale"`
}

func (s *ValidatorSolver) Solve(ctx context.Context, state *workflow.State, task *workflow.Task) workflow.SolveStep {
	started := time.Now()

	proposed, ok := state.ProposedResult()
	if !ok {
		return workflow.Failed(task, ValidatorName, started, nil, fmt.Errorf("no proposed result to validate"))
	}
	inputs := []workflow.Var{{Name: "proposed_result", Value: proposed}}

	prompt, err := s.prompts.Fill(s.opts.prompt, map[string]string{
		"user_request":    state.Request,
		"proposed_result": proposed,
	})
	if err != nil {
		return workflow.Failed(task, ValidatorName, started, inputs, err)
	}

	resp, err := s.gen.Generate(ctx, prompt, s.opts.maxTokens, s.opts.temperature)
	if err != nil {
		return workflow.Failed(task, ValidatorName, started, inputs, fmt.Errorf("generate: %w", err))
	}

	v, err := parseVerdict(resp)
	if err != nil {
		return workflow.Failed(task, ValidatorName, started, inputs, err)
	}

	outputs := []workflow.Var{
		{Name: workflow.OutputAnswered, Description: "Whether the request is answered", Value: *v.IsRequestAnswered},
		{Name: workflow.OutputRationale, Description: "Validator rationale", Value: v.Rationale},
		{Name: workflow.OutputValidatedResult, Description: "Validated answer", Value: proposed},
	}
	return finish(task, ValidatorName, started, inputs, outputs, verdictSchema)
}

func parseVerdict(resp string) (verdict, error) {
	obj, ok := workflow.ExtractJSON(resp)
	if !ok {
		return verdict{}, fmt.Errorf("validator response is not a JSON object")
	}
	var v verdict
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return verdict{}, fmt.Errorf("parse validator response: %w", err)
	}
	if v.IsRequestAnswered == nil {
		return verdict{}, fmt.Errorf("validator response has no isRequestAnswered field")
	}
	return v, nil
}
