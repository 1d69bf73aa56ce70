package workflow

import (
	"sort"
	"strings"
)

// Well-known output and input names shared by the built-in solvers.
const (
	OutputRequest         = "request"
	OutputResult          = "result"
	OutputAnswered        = "answered"
	OutputRationale       = "rationale"
	OutputValidatedResult = "validated_result"

	InputUserRequest = "user_request"
)

// Plan is a set of subtrees proposed by a strategy. Each subtree replaces the
// children of the existing node with the same root id.
type Plan []*TaskTree

// Key builds the scratchpad key for a task output.
func Key(taskID, output string) string {
	return taskID + "." + output
}

// State is the single mutable aggregate of one run. It is created per
// request and never reused.
type State struct {
	Request    string
	Tree       *TaskTree
	Scratchpad map[string]Var
	History    []SolveStep

	done    bool
	planned map[string]bool
}

// NewState builds the initial tree for a request: the user request with a
// solve root and a validator beneath it.
func NewState(request string) *State {
	req := NewUserRequest(request)
	s := &State{
		Request: request,
		Tree: NewTaskTree(req,
			NewTaskTree(NewSolveRoot(request)),
			NewTaskTree(NewValidatorTask()),
		),
		Scratchpad: make(map[string]Var),
		planned:    make(map[string]bool),
	}
	s.Scratchpad[Key(req.ID, OutputRequest)] = Var{
		Name:        OutputRequest,
		Description: "The original user request",
		Value:       request,
	}
	return s
}

// SolveRoot returns the node that decomposition expands.
func (s *State) SolveRoot() *TaskTree {
	return s.Tree.FindTask(func(t *Task) bool { return t.Kind == KindSolveRoot })
}

// Validator returns the validator node.
func (s *State) Validator() *TaskTree {
	return s.Tree.FindTask(func(t *Task) bool { return t.Kind == KindValidator })
}

// MarkPlanned records that decomposition ran for the task.
func (s *State) MarkPlanned(taskID string) {
	s.planned[taskID] = true
}

// IsPlanned reports whether decomposition already ran for the task.
func (s *State) IsPlanned(taskID string) bool {
	return s.planned[taskID]
}

// UpdateTasking merges a plan into the tree. Applying the same plan twice
// yields the same tree. The tree is left untouched if any subtree refers to
// an unknown task.
func (s *State) UpdateTasking(plan Plan) error {
	nodes := make([]*TaskTree, len(plan))
	for i, sub := range plan {
		node := s.Tree.FindByID(sub.Root.ID)
		if node == nil {
			return &TaskNotFoundError{TaskID: sub.Root.ID, Reason: "plan refers to a task outside the tree"}
		}
		nodes[i] = node
	}

	for i, sub := range plan {
		fresh := sub.Clone()
		nodes[i].Children = fresh.Children
		nodes[i].Root.Done = fresh.Root.Done
	}
	return nil
}

// CheckDone recomputes completion from the tree and returns it.
func (s *State) CheckDone() bool {
	s.done = s.Tree.AllDone()
	return s.done
}

// IsDone reports the completion computed by the last CheckDone.
func (s *State) IsDone() bool {
	return s.done
}

// Get returns a scratchpad entry.
func (s *State) Get(key string) (Var, bool) {
	v, ok := s.Scratchpad[key]
	return v, ok
}

// Record appends a step to the history. A successful step also completes its
// task and folds its outputs into the scratchpad under "<taskId>.<name>".
func (s *State) Record(step SolveStep) error {
	s.History = append(s.History, step)
	if !step.Success {
		return nil
	}

	for _, out := range step.Outputs {
		s.Scratchpad[Key(step.Task.ID, out.Name)] = out
	}
	if !s.Tree.SetTaskDone(step.Task.ID) {
		return &TaskNotFoundError{TaskID: step.Task.ID, Reason: "completed task is not in the tree"}
	}
	return nil
}

// InputsFor resolves the declared inputs of a tool task. Each name is looked
// up as "<name>.result", then as a raw scratchpad key, then as the
// user_request alias, and otherwise taken literally.
func (s *State) InputsFor(task *Task) []Var {
	vars := make([]Var, 0, len(task.Inputs))
	for _, name := range task.Inputs {
		vars = append(vars, s.resolve(name))
	}
	return vars
}

func (s *State) resolve(name string) Var {
	if v, ok := s.Scratchpad[Key(name, OutputResult)]; ok {
		return Var{Name: name, Description: v.Description, Value: v.Value}
	}
	if v, ok := s.Scratchpad[name]; ok {
		return Var{Name: name, Description: v.Description, Value: v.Value}
	}
	if name == InputUserRequest {
		return Var{Name: name, Description: "The original user request", Value: s.Request}
	}
	return Var{Name: name, Description: "literal", Value: name}
}

// AggregateInputsFor resolves the inputs of the first unfinished task whose
// tool is toolName.
func (s *State) AggregateInputsFor(toolName string) (map[string]string, error) {
	node := s.Tree.FindTask(func(t *Task) bool {
		return t.Kind == KindTool && t.Tool == toolName && !t.Done
	})
	if node == nil {
		return nil, &TaskNotFoundError{Reason: "no unfinished task uses tool '" + toolName + "'"}
	}

	inputs := make(map[string]string, len(node.Root.Inputs))
	for _, v := range s.InputsFor(node.Root) {
		inputs[v.Name] = v.Text()
	}
	return inputs, nil
}

// Results returns every "<taskId>.result" entry produced so far, in
// execution order.
func (s *State) Results() []Var {
	var results []Var
	seen := make(map[string]bool)
	for _, step := range s.History {
		key := Key(step.Task.ID, OutputResult)
		if !step.Success || seen[key] {
			continue
		}
		if v, ok := s.Scratchpad[key]; ok {
			seen[key] = true
			results = append(results, Var{Name: step.Task.ID, Description: step.Task.Label(), Value: v.Value})
		}
	}
	return results
}

// ProposedResult is the answer awaiting validation: the result of the last
// child of the solve root, or of the solve root itself when it was atomic.
func (s *State) ProposedResult() (string, bool) {
	root := s.SolveRoot()
	if root == nil {
		return "", false
	}
	id := root.Root.ID
	if !root.IsLeaf() {
		id = root.Children[len(root.Children)-1].Root.ID
	}
	v, ok := s.Scratchpad[Key(id, OutputResult)]
	if !ok {
		return "", false
	}
	return v.Text(), true
}

// FinalResult reads "<validatorId>.validated_result".
func (s *State) FinalResult() (string, bool) {
	validator := s.Validator()
	if validator == nil {
		return "", false
	}
	v, ok := s.Scratchpad[Key(validator.Root.ID, OutputValidatedResult)]
	if !ok {
		return "", false
	}
	return v.Text(), true
}

// Validation is the validator verdict as recorded in the scratchpad.
type Validation struct {
	Answered  bool   `json:"answered"`
	Rationale string `json:"rationale"`
	Result    string `json:"result,omitempty"`
}

// Validation returns the recorded verdict, or false if the validator has not
// produced one.
func (s *State) Validation() (Validation, bool) {
	validator := s.Validator()
	if validator == nil {
		return Validation{}, false
	}
	answered, ok := s.Scratchpad[Key(validator.Root.ID, OutputAnswered)]
	if !ok {
		return Validation{}, false
	}
	var v Validation
	switch a := answered.Value.(type) {
	case bool:
		v.Answered = a
	case string:
		v.Answered = strings.EqualFold(a, "true")
	}
	if r, ok := s.Scratchpad[Key(validator.Root.ID, OutputRationale)]; ok {
		v.Rationale = r.Text()
	}
	if r, ok := s.Scratchpad[Key(validator.Root.ID, OutputValidatedResult)]; ok {
		v.Result = r.Text()
	}
	return v, true
}

// Keys returns the scratchpad keys in sorted order.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.Scratchpad))
	for k := range s.Scratchpad {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
