package streamers

import (
	"sync"
	"time"
)

// EventType names a progress event on the wire and in the store.
type EventType string

const (
	EventProgress     EventType = "progress"
	EventUser         EventType = "user"
	EventPlanningTask EventType = "planning_task"
	EventUsingTool    EventType = "using_tool"
	EventToolResult   EventType = "tool_result"
	EventError        EventType = "error"
	EventResponse     EventType = "response"
)

// Event is the serializable form of one RunHandler call.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	// ID is the task id of a PlanningTask event
	ID string `json:"id,omitempty"`
	// Name is the solver name of UsingTool and ToolResult events
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// Emit replays the event on h.
func (e Event) Emit(h RunHandler) {
	switch e.Type {
	case EventProgress:
		h.Progress(e.Text)
	case EventUser:
		h.User(e.Text)
	case EventPlanningTask:
		h.PlanningTask(e.ID, e.Text)
	case EventUsingTool:
		h.UsingTool(e.Name, e.Text)
	case EventToolResult:
		h.ToolResult(e.Name, e.Text)
	case EventError:
		h.Error(eventError(e.Text))
	case EventResponse:
		h.Response(e.Text)
	}
}

type eventError string

func (e eventError) Error() string { return string(e) }

// eventSink adapts a single callback to the RunHandler interface.
type eventSink func(Event)

func (f eventSink) Progress(text string) { f(Event{Type: EventProgress, Time: time.Now(), Text: text}) }
func (f eventSink) User(text string)     { f(Event{Type: EventUser, Time: time.Now(), Text: text}) }
func (f eventSink) PlanningTask(id, label string) {
	f(Event{Type: EventPlanningTask, Time: time.Now(), ID: id, Text: label})
}
func (f eventSink) UsingTool(name, inputs string) {
	f(Event{Type: EventUsingTool, Time: time.Now(), Name: name, Text: inputs})
}
func (f eventSink) ToolResult(name, outputs string) {
	f(Event{Type: EventToolResult, Time: time.Now(), Name: name, Text: outputs})
}
func (f eventSink) Error(err error) {
	f(Event{Type: EventError, Time: time.Now(), Text: err.Error()})
}
func (f eventSink) Response(text string) { f(Event{Type: EventResponse, Time: time.Now(), Text: text}) }

// Func returns a RunHandler that converts every call to an Event and passes it to fn.
func Func(fn func(Event)) RunHandler {
	return eventSink(fn)
}

// Nop returns a handler that discards every event.
func Nop() RunHandler {
	return eventSink(func(Event) {})
}

// Recorder keeps every event in order. It is safe for concurrent use.
type Recorder struct {
	RunHandler

	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.RunHandler = eventSink(r.add)
	return r
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []EventType {
	events := r.Events()
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// Multi fans every event out to each handler in order.
type Multi []RunHandler

func (m Multi) Progress(text string) {
	for _, h := range m {
		h.Progress(text)
	}
}

func (m Multi) User(text string) {
	for _, h := range m {
		h.User(text)
	}
}

func (m Multi) PlanningTask(id, label string) {
	for _, h := range m {
		h.PlanningTask(id, label)
	}
}

func (m Multi) UsingTool(name, inputs string) {
	for _, h := range m {
		h.UsingTool(name, inputs)
	}
}

func (m Multi) ToolResult(name, outputs string) {
	for _, h := range m {
		h.ToolResult(name, outputs)
	}
}

func (m Multi) Error(err error) {
	for _, h := range m {
		h.Error(err)
	}
}

func (m Multi) Response(text string) {
	for _, h := range m {
		h.Response(text)
	}
}
