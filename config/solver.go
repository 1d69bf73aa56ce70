package config

import "fmt"

// Solver types
const (
	SolverInstruct = "instruct"
	SolverShell    = "shell"
	SolverCommand  = "command"
	SolverHTTPGet  = "http_get"
)

// SolverConfig declares a built-in solver under a name of your choosing.
type SolverConfig struct {
	Name        string `hcl:"name,label"`
	Type        string `hcl:"type"`
	Description string `hcl:"description,optional"`
	// Instruction is the task of an instruct solver.
	Instruction string `hcl:"instruction,optional"`
	// Model overrides the executor model for an instruct solver.
	Model string `hcl:"model,optional"`
	// Command is the fixed command line of a command solver.
	Command string `hcl:"command,optional"`
}

func (s *SolverConfig) Validate() error {
	switch s.Type {
	case SolverInstruct:
		if s.Instruction == "" {
			return fmt.Errorf("instruction is required for instruct solvers")
		}
	case SolverCommand:
		if s.Command == "" {
			return fmt.Errorf("command is required for command solvers")
		}
	case SolverShell, SolverHTTPGet:
	default:
		return fmt.Errorf("unknown type '%s': expected instruct, shell, command or http_get", s.Type)
	}
	if s.Model != "" && s.Type != SolverInstruct {
		return fmt.Errorf("model only applies to instruct solvers")
	}
	return nil
}
