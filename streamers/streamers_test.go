package streamers_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/store"
	"taskweave/streamers"
)

func emitAll(h streamers.RunHandler) {
	h.User("say hi")
	h.Progress("Step 1 of 8")
	h.PlanningTask("greet", "Say hi")
	h.UsingTool("greeter", "user_request=say hi")
	h.ToolResult("greeter", "result=hi")
	h.Error(errors.New("late failure"))
	h.Response("hi")
}

var allTypes = []streamers.EventType{
	streamers.EventUser,
	streamers.EventProgress,
	streamers.EventPlanningTask,
	streamers.EventUsingTool,
	streamers.EventToolResult,
	streamers.EventError,
	streamers.EventResponse,
}

var _ = Describe("Recorder", func() {
	It("keeps events in order", func() {
		r := streamers.NewRecorder()
		emitAll(r)
		Expect(r.Types()).To(Equal(allTypes))
		events := r.Events()
		Expect(events[2].ID).To(Equal("greet"))
		Expect(events[3].Name).To(Equal("greeter"))
		Expect(events[5].Text).To(Equal("late failure"))
	})

	It("replays events onto another handler", func() {
		source := streamers.NewRecorder()
		emitAll(source)
		replica := streamers.NewRecorder()
		for _, e := range source.Events() {
			e.Emit(replica)
		}
		Expect(replica.Types()).To(Equal(allTypes))
	})
})

var _ = Describe("Multi", func() {
	It("fans out to every handler", func() {
		a, b := streamers.NewRecorder(), streamers.NewRecorder()
		emitAll(streamers.Multi{a, b, streamers.Nop()})
		Expect(a.Types()).To(Equal(allTypes))
		Expect(b.Types()).To(Equal(allTypes))
	})
})

var _ = Describe("Func", func() {
	It("passes each event to the callback", func() {
		var seen []streamers.EventType
		emitAll(streamers.Func(func(e streamers.Event) { seen = append(seen, e.Type) }))
		Expect(seen).To(Equal(allTypes))
	})
})

var _ = Describe("StoringHandler", func() {
	var (
		bundle *store.Bundle
		runID  string
	)

	BeforeEach(func() {
		bundle = store.NewMemoryBundle()
		var err error
		runID, err = bundle.Runs.CreateRun("say hi")
		Expect(err).NotTo(HaveOccurred())
	})

	It("persists every event and delegates", func() {
		inner := streamers.NewRecorder()
		emitAll(streamers.NewStoringHandler(inner, bundle.Runs, runID, nil))
		Expect(inner.Types()).To(Equal(allTypes))

		events, err := bundle.Runs.GetEvents(runID, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(len(allTypes)))
		Expect(events[2].EventType).To(Equal("planning_task"))
		Expect(events[2].TaskID).To(Equal("greet"))
		Expect(events[3].Name).To(Equal("greeter"))
	})

	It("replays a stored run", func() {
		emitAll(streamers.NewStoringHandler(nil, bundle.Runs, runID, nil))
		replayed := streamers.NewRecorder()
		Expect(streamers.Replay(bundle.Runs, runID, replayed)).To(Succeed())
		Expect(replayed.Types()).To(Equal(allTypes))
		Expect(replayed.Events()[6].Text).To(Equal("hi"))
	})
})
