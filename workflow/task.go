package workflow

import (
	"github.com/google/uuid"
)

// TaskKind tags the variant of a Task
type TaskKind string

const (
	KindUserRequest TaskKind = "user_request"
	KindSolveRoot   TaskKind = "solve_root"
	KindValidator   TaskKind = "validator"
	KindTool        TaskKind = "tool"
)

// Task is a unit of work in the task tree. ID is the only lookup key.
type Task struct {
	ID          string   `json:"id"`
	Kind        TaskKind `json:"kind"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Done        bool     `json:"done"`

	// KindUserRequest
	Request string `json:"request,omitempty"`

	// KindTool
	Tool   string   `json:"tool,omitempty"`
	Inputs []string `json:"inputs,omitempty"`
}

// NewUserRequest creates the user request task that roots every tree.
func NewUserRequest(request string) *Task {
	return &Task{
		ID:          newTaskID(),
		Kind:        KindUserRequest,
		Name:        "User Request",
		Description: request,
		Request:     request,
	}
}

// NewSolveRoot creates the task that decomposition expands.
func NewSolveRoot(problem string) *Task {
	return &Task{
		ID:          newTaskID(),
		Kind:        KindSolveRoot,
		Name:        "Solve",
		Description: problem,
	}
}

// NewValidatorTask creates the terminal validation task.
func NewValidatorTask() *Task {
	return &Task{
		ID:          newTaskID(),
		Kind:        KindValidator,
		Name:        "Validate",
		Description: "Check that the proposed result answers the user request",
	}
}

// NewToolTask creates a task dispatched to the solver named tool.
// An empty id is replaced by a generated one.
func NewToolTask(id, name, description, tool string, inputs []string) *Task {
	if id == "" {
		id = newTaskID()
	}
	return &Task{
		ID:          id,
		Kind:        KindTool,
		Name:        name,
		Description: description,
		Tool:        tool,
		Inputs:      append([]string(nil), inputs...),
	}
}

// Label is the short human readable form used in progress output.
func (t *Task) Label() string {
	if t.Description != "" {
		return t.Description
	}
	return t.Name
}

// clone returns a copy that shares no slices with t.
func (t *Task) clone() *Task {
	c := *t
	c.Inputs = append([]string(nil), t.Inputs...)
	return &c
}

func newTaskID() string {
	return uuid.New().String()
}
