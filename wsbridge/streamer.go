package wsbridge

import (
	"taskweave/streamers"
	"taskweave/workflow"
)

// Handler returns a RunHandler that forwards each event of runID as a
// run_event envelope. Send failures are logged and dropped.
func (c *Client) Handler(runID string) streamers.RunHandler {
	return streamers.Func(func(e streamers.Event) {
		env, err := NewEvent(TypeRunEvent, &RunEventPayload{RunID: runID, Event: e})
		if err != nil {
			c.logger.Warn("encode event", "run", runID, "error", err)
			return
		}
		if err := c.sendEnvelope(env); err != nil {
			c.logger.Warn("event not sent", "run", runID, "type", e.Type, "error", err)
		}
	})
}

// Completed announces the outcome of runID.
func (c *Client) Completed(runID string, report workflow.Report) error {
	env, err := NewEvent(TypeRunCompleted, &RunCompletedPayload{
		RunID:  runID,
		Done:   report.Done,
		Result: report.Result,
		Error:  report.Error,
	})
	if err != nil {
		return err
	}
	return c.sendEnvelope(env)
}
