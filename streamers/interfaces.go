package streamers

// RunHandler receives the progress events of a run, in the order the
// executor produces them. Implementations render to a terminal, persist to a
// store, or forward over a websocket.
type RunHandler interface {
	// Progress reports a phase change of the control loop
	Progress(text string)

	// User echoes the incoming request
	User(text string)

	// PlanningTask is emitted once per subtask added by decomposition
	PlanningTask(id string, label string)

	// UsingTool is emitted before a solver runs, with its resolved inputs
	UsingTool(name string, inputs string)

	// ToolResult is emitted after a solver succeeds, with its outputs
	ToolResult(name string, outputs string)

	// Error reports a failed step or a fatal run error
	Error(err error)

	// Response carries the final validated answer
	Response(text string)
}
