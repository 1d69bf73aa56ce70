package streamers

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"taskweave/store"
)

// StoringHandler is a RunHandler decorator that persists every event to the
// run store, then delegates to an inner handler (e.g. CLI or WebSocket).
type StoringHandler struct {
	inner  RunHandler
	runs   store.RunStore
	runID  string
	logger hclog.Logger
}

// NewStoringHandler wraps inner with event persistence for runID. A nil
// inner handler only stores.
func NewStoringHandler(inner RunHandler, runs store.RunStore, runID string, logger hclog.Logger) *StoringHandler {
	if inner == nil {
		inner = Nop()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &StoringHandler{inner: inner, runs: runs, runID: runID, logger: logger}
}

// storeEvent persists an event, logging (not failing) on error.
func (h *StoringHandler) storeEvent(e Event) {
	record := store.EventRecord{
		ID:        uuid.New().String(),
		RunID:     h.runID,
		EventType: string(e.Type),
		TaskID:    e.ID,
		Name:      e.Name,
		Text:      e.Text,
		CreatedAt: e.Time,
	}
	if err := h.runs.StoreEvent(record); err != nil {
		h.logger.Warn("store event", "run", h.runID, "type", e.Type, "error", err)
	}
}

func (h *StoringHandler) Progress(text string) {
	h.storeEvent(Event{Type: EventProgress, Time: time.Now(), Text: text})
	h.inner.Progress(text)
}

func (h *StoringHandler) User(text string) {
	h.storeEvent(Event{Type: EventUser, Time: time.Now(), Text: text})
	h.inner.User(text)
}

func (h *StoringHandler) PlanningTask(id, label string) {
	h.storeEvent(Event{Type: EventPlanningTask, Time: time.Now(), ID: id, Text: label})
	h.inner.PlanningTask(id, label)
}

func (h *StoringHandler) UsingTool(name, inputs string) {
	h.storeEvent(Event{Type: EventUsingTool, Time: time.Now(), Name: name, Text: inputs})
	h.inner.UsingTool(name, inputs)
}

func (h *StoringHandler) ToolResult(name, outputs string) {
	h.storeEvent(Event{Type: EventToolResult, Time: time.Now(), Name: name, Text: outputs})
	h.inner.ToolResult(name, outputs)
}

func (h *StoringHandler) Error(err error) {
	h.storeEvent(Event{Type: EventError, Time: time.Now(), Text: err.Error()})
	h.inner.Error(err)
}

func (h *StoringHandler) Response(text string) {
	h.storeEvent(Event{Type: EventResponse, Time: time.Now(), Text: text})
	h.inner.Response(text)
}

// Replay re-emits the stored events of a run on h.
func Replay(runs store.RunStore, runID string, h RunHandler) error {
	events, err := runs.GetEvents(runID, 0, 0)
	if err != nil {
		return err
	}
	for _, r := range events {
		Event{Type: EventType(r.EventType), Time: r.CreatedAt, ID: r.TaskID, Name: r.Name, Text: r.Text}.Emit(h)
	}
	return nil
}
