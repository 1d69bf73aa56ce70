// Package solvers holds the built-in workflow solvers: plain functions,
// instruction-driven generators, the aggregator and the validator.
package solvers

import (
	"fmt"
	"strings"
	"time"

	"taskweave/schema"
	"taskweave/workflow"
)

// Names of the two solvers every strategy depends on.
const (
	AggregatorName = "Aggregator"
	ValidatorName  = "Validator"
)

const defaultVersion = "1.0.0"

const (
	defaultMaxTokens   = 2000
	defaultTemperature = 0.0
)

// Option configures a generator-backed solver.
type Option func(*options)

type options struct {
	prompt      string
	maxTokens   int
	temperature float64
	version     string
}

func newOptions(prompt string, opts []Option) options {
	o := options{
		prompt:      prompt,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		version:     defaultVersion,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPrompt selects a different template id from the prompt library.
func WithPrompt(id string) Option {
	return func(o *options) {
		if id != "" {
			o.prompt = id
		}
	}
}

// WithMaxTokens caps the generated length.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) {
		o.temperature = t
	}
}

// WithVersion overrides the reported solver version.
func WithVersion(v string) Option {
	return func(o *options) {
		if v != "" {
			o.version = v
		}
	}
}

var resultSchema = schema.Object(schema.PropertyMap{
	workflow.OutputResult: {Type: schema.TypeString, Description: "The produced answer"},
}, workflow.OutputResult)

var textInputSchema = schema.Object(schema.PropertyMap{
	"input": {Type: schema.TypeString, Description: "Text the solver works on"},
})

// finish checks outputs against the declared schema and builds the step.
func finish(task *workflow.Task, solver string, started time.Time, inputs, outputs []workflow.Var, out schema.Schema) workflow.SolveStep {
	if err := out.Validate(workflow.VarMap(outputs)); err != nil {
		return workflow.Failed(task, solver, started, inputs, fmt.Errorf("invalid output: %w", err))
	}
	return workflow.Succeeded(task, solver, started, inputs, outputs)
}

// taskInputs resolves the declared inputs of task. A task that declares none
// works on its own description.
func taskInputs(state *workflow.State, task *workflow.Task) []workflow.Var {
	if len(task.Inputs) > 0 {
		return state.InputsFor(task)
	}
	return []workflow.Var{{Name: "task", Description: task.Name, Value: task.Label()}}
}

// joinValues renders values in the order the task lists its inputs.
func joinValues(names []string, values map[string]string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, values[name])
	}
	return strings.Join(parts, "\n")
}

func joinInputs(inputs []workflow.Var) string {
	parts := make([]string, 0, len(inputs))
	for _, v := range inputs {
		parts = append(parts, v.Text())
	}
	return strings.Join(parts, "\n")
}
