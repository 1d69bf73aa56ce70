package workflow

// StepReport is the serializable form of a SolveStep.
type StepReport struct {
	TaskID     string `json:"taskId"`
	TaskName   string `json:"taskName"`
	Solver     string `json:"solver"`
	Inputs     []Var  `json:"inputs,omitempty"`
	Outputs    []Var  `json:"outputs,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes a run for JSON output.
type Report struct {
	Request    string         `json:"request"`
	Done       bool           `json:"done"`
	Result     string         `json:"result,omitempty"`
	Validation *Validation    `json:"validation,omitempty"`
	Error      string         `json:"error,omitempty"`
	Tree       *TaskTree      `json:"tree"`
	Scratchpad map[string]Var `json:"scratchpad"`
	Steps      []StepReport   `json:"steps"`
}

// NewReport builds a report from a state and the error Run returned.
func NewReport(state *State, runErr error) Report {
	r := Report{
		Request:    state.Request,
		Done:       state.IsDone(),
		Tree:       state.Tree,
		Scratchpad: state.Scratchpad,
		Steps:      make([]StepReport, 0, len(state.History)),
	}
	if result, ok := state.FinalResult(); ok {
		r.Result = result
	}
	if v, ok := state.Validation(); ok {
		r.Validation = &v
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	for _, step := range state.History {
		r.Steps = append(r.Steps, NewStepReport(step))
	}
	return r
}

// NewStepReport converts one step.
func NewStepReport(step SolveStep) StepReport {
	return StepReport{
		TaskID:     step.Task.ID,
		TaskName:   step.Task.Label(),
		Solver:     step.Solver,
		Inputs:     step.Inputs,
		Outputs:    step.Outputs,
		DurationMs: step.Millis(),
		Success:    step.Success,
		Error:      step.ErrorText(),
	}
}
