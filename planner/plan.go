package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"taskweave/workflow"
)

// RawPlan is the decomposition a model returns.
type RawPlan struct {
	Problem       string        `json:"problem"`
	Subtasks      []RawSubtask  `json:"subtasks"`
	FinalResponse *RawFinalStep `json:"final_response,omitempty"`
}

// RawSubtask is one proposed step.
type RawSubtask struct {
	ID     string `json:"id"`
	Task   string `json:"task"`
	Tool   string `json:"tool"`
	Inputs Inputs `json:"inputs"`
}

// RawFinalStep describes how the subtask results combine.
type RawFinalStep struct {
	Task   string `json:"task"`
	Inputs Inputs `json:"inputs"`
}

// Inputs accepts a single string or a list. Non-string list items keep their
// JSON text.
type Inputs []string

func (in *Inputs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*in = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			*in = nil
		} else {
			*in = Inputs{single}
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("inputs must be a string or a list")
	}
	out := make(Inputs, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		out = append(out, string(bytes.TrimSpace(item)))
	}
	*in = out
	return nil
}

// ParsePlan extracts and decodes the plan in a model response. Subtasks
// without an id are numbered task1, task2, ... by position.
func ParsePlan(response string) (*RawPlan, error) {
	obj, ok := workflow.ExtractJSON(response)
	if !ok {
		return nil, &workflow.PlanningParseError{Response: response, Reason: "response contains no JSON object"}
	}

	var plan RawPlan
	if err := json.Unmarshal([]byte(obj), &plan); err != nil {
		return nil, &workflow.PlanningParseError{Response: response, Reason: "invalid plan JSON", Err: err}
	}
	if len(plan.Subtasks) == 0 {
		return nil, &workflow.PlanningParseError{Response: response, Reason: "plan has no subtasks"}
	}

	seen := make(map[string]bool, len(plan.Subtasks))
	for i := range plan.Subtasks {
		sub := &plan.Subtasks[i]
		sub.ID = strings.TrimSpace(sub.ID)
		sub.Tool = strings.TrimSpace(sub.Tool)
		if sub.ID == "" {
			sub.ID = fmt.Sprintf("task%d", i+1)
		}
		if seen[sub.ID] {
			return nil, &workflow.PlanningParseError{Response: response, Reason: fmt.Sprintf("duplicate subtask id '%s'", sub.ID)}
		}
		seen[sub.ID] = true
	}
	return &plan, nil
}

// IsAtomic reports whether the plan is a single subtask that restates the
// problem or the request.
func (p *RawPlan) IsAtomic(request string) bool {
	if len(p.Subtasks) != 1 {
		return false
	}
	task := normalize(p.Subtasks[0].Task)
	return task == normalize(p.Problem) || task == normalize(request)
}

// SubtaskIDs returns the subtask ids in plan order.
func (p *RawPlan) SubtaskIDs() []string {
	ids := make([]string, len(p.Subtasks))
	for i, sub := range p.Subtasks {
		ids[i] = sub.ID
	}
	return ids
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
