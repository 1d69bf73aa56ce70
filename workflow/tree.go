package workflow

// TaskTree is a task and its ordered subtasks. A node is done only once all
// of its children are done; SetTaskDone is the only way to complete a node.
type TaskTree struct {
	Root     *Task       `json:"root"`
	Children []*TaskTree `json:"children,omitempty"`
}

// NewTaskTree creates a node with the given children.
func NewTaskTree(root *Task, children ...*TaskTree) *TaskTree {
	return &TaskTree{Root: root, Children: children}
}

// Done reports whether the root task is done.
func (t *TaskTree) Done() bool {
	return t.Root.Done
}

// IsLeaf reports whether the node has no children.
func (t *TaskTree) IsLeaf() bool {
	return len(t.Children) == 0
}

// FindTask returns the first node, in depth-first pre-order, whose root
// satisfies pred, or nil.
func (t *TaskTree) FindTask(pred func(*Task) bool) *TaskTree {
	if pred(t.Root) {
		return t
	}
	for _, c := range t.Children {
		if found := c.FindTask(pred); found != nil {
			return found
		}
	}
	return nil
}

// FindByID returns the node whose root has the given id, or nil.
func (t *TaskTree) FindByID(id string) *TaskTree {
	return t.FindTask(func(task *Task) bool { return task.ID == id })
}

// SetTaskDone marks the task with the given id done and propagates completion
// to every ancestor whose children are now all done. It returns false when no
// task has that id. Completing a composite node that still has an unfinished
// child panics with a *TreeInvariantError.
func (t *TaskTree) SetTaskDone(id string) bool {
	if t.Root.ID == id {
		if pending := t.pendingChild(); pending != nil {
			panic(&TreeInvariantError{
				TaskID: id,
				Reason: "child '" + pending.Root.ID + "' is not done",
			})
		}
		t.Root.Done = true
		return true
	}

	for _, c := range t.Children {
		if c.SetTaskDone(id) {
			if t.pendingChild() == nil {
				t.Root.Done = true
			}
			return true
		}
	}
	return false
}

func (t *TaskTree) pendingChild() *TaskTree {
	for _, c := range t.Children {
		if !c.Done() {
			return c
		}
	}
	return nil
}

// Walk visits every node in depth-first pre-order with its depth.
func (t *TaskTree) Walk(fn func(node *TaskTree, depth int)) {
	t.walk(fn, 0)
}

func (t *TaskTree) walk(fn func(*TaskTree, int), depth int) {
	fn(t, depth)
	for _, c := range t.Children {
		c.walk(fn, depth+1)
	}
}

// Leaves returns the leaf nodes in pre-order.
func (t *TaskTree) Leaves() []*TaskTree {
	var leaves []*TaskTree
	t.Walk(func(node *TaskTree, _ int) {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
	})
	return leaves
}

// AllDone reports whether every node in the tree is done.
func (t *TaskTree) AllDone() bool {
	done := true
	t.Walk(func(node *TaskTree, _ int) {
		if !node.Root.Done {
			done = false
		}
	})
	return done
}

// Clone returns a deep copy of the tree.
func (t *TaskTree) Clone() *TaskTree {
	c := &TaskTree{Root: t.Root.clone()}
	if len(t.Children) > 0 {
		c.Children = make([]*TaskTree, len(t.Children))
		for i, child := range t.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}
