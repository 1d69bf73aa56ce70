package config

import "fmt"

const (
	defaultMaxSteps  = 8
	defaultMaxTokens = 2000
)

// ExecutorConfig tunes the control loop and names the model the planner,
// aggregator and validator use.
type ExecutorConfig struct {
	Model       string  `hcl:"model"`
	MaxSteps    int     `hcl:"max_steps,optional"`
	PlanRetries *int    `hcl:"plan_retries,optional"`
	MaxTokens   int     `hcl:"max_tokens,optional"`
	Temperature float64 `hcl:"temperature,optional"`
}

// Defaults fills in default values for unset fields
func (e *ExecutorConfig) Defaults() {
	if e.MaxSteps <= 0 {
		e.MaxSteps = defaultMaxSteps
	}
	if e.MaxTokens <= 0 {
		e.MaxTokens = defaultMaxTokens
	}
}

func (e *ExecutorConfig) Validate() error {
	if e.Model == "" {
		return fmt.Errorf("model is required")
	}
	if e.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}
	if e.PlanRetries != nil && *e.PlanRetries < 0 {
		return fmt.Errorf("plan_retries must not be negative")
	}
	if e.Temperature < 0 || e.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}
