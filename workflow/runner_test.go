package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/store"
	"taskweave/streamers"
	"taskweave/workflow"
)

var _ = Describe("Runner", func() {
	var (
		runs     store.RunStore
		answer   *stubSolver
		check    *stubSolver
		recorder *streamers.Recorder
	)

	BeforeEach(func() {
		runs = store.NewMemoryBundle().Runs
		answer = &stubSolver{name: "answer", outputs: map[string]any{"result": "42"}}
		check = &stubSolver{name: "check", outputs: map[string]any{
			workflow.OutputAnswered:        true,
			workflow.OutputRationale:       "fine",
			workflow.OutputValidatedResult: "42",
		}}
		recorder = streamers.NewRecorder()
	})

	It("stores the run, its steps and its events", func() {
		observed := 0
		exec := workflow.NewExecutor(&fixedStrategy{}, []workflow.Solver{answer, check},
			workflow.WithStepObserver(func(int, workflow.SolveStep) { observed++ }))
		runner := workflow.NewRunner(exec, runs, nil)

		id, state, err := runner.Run(context.Background(), "what is the answer", recorder)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.IsDone()).To(BeTrue())
		Expect(observed).To(Equal(2))

		info, err := runs.GetRun(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Status).To(Equal(store.StatusCompleted))
		Expect(*info.Result).To(Equal("42"))
		Expect(info.StepCount).To(Equal(2))
		Expect(info.FinishedAt).NotTo(BeNil())

		steps, err := runs.GetSteps(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(steps[0].Solver).To(Equal("answer"))
		Expect(steps[1].Solver).To(Equal("check"))
		Expect(steps[0].Index).To(Equal(0))

		var outs []workflow.Var
		Expect(json.Unmarshal([]byte(steps[0].OutputsJSON), &outs)).To(Succeed())
		Expect(outs).To(ContainElement(HaveField("Value", "42")))

		events, err := runs.GetEvents(id, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(len(recorder.Events())))
		Expect(events[0].EventType).To(Equal(string(streamers.EventUser)))
	})

	It("marks aborted runs as failed", func() {
		runner := workflow.NewRunner(workflow.NewExecutor(&fixedStrategy{planErrs: []error{errors.New("a"), errors.New("b")}}, nil), runs, nil)

		id, _, err := runner.Run(context.Background(), "plan me", nil)
		Expect(err).To(HaveOccurred())

		info, err := runs.GetRun(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Status).To(Equal(store.StatusFailed))
		Expect(*info.Error).To(Equal("b"))
		Expect(info.Result).To(BeNil())
	})

	It("marks rejected answers", func() {
		check.outputs = map[string]any{
			workflow.OutputAnswered:        false,
			workflow.OutputRationale:       "off topic",
			workflow.OutputValidatedResult: "42",
		}
		runner := workflow.NewRunner(workflow.NewExecutor(&fixedStrategy{}, []workflow.Solver{answer, check}), runs, nil)

		id, _, err := runner.Run(context.Background(), "what is the answer", nil)
		Expect(err).NotTo(HaveOccurred())

		info, _ := runs.GetRun(id)
		Expect(info.Status).To(Equal(store.StatusRejected))
		Expect(*info.Error).To(Equal("off topic"))
		Expect(info.Result).NotTo(BeNil())
		Expect(*info.Result).To(Equal("42"))
	})
})

var _ = Describe("NewStepRecord", func() {
	It("serializes inputs and outputs", func() {
		task := workflow.NewToolTask("t1", "calc", "add", "calculator", []string{"x"})
		step := workflow.Succeeded(task, "calculator", time.Now(), []workflow.Var{{Name: "x", Value: "2"}}, nil)

		rec := workflow.NewStepRecord(3, step)
		Expect(rec.Index).To(Equal(3))
		Expect(rec.TaskID).To(Equal("t1"))
		Expect(rec.TaskName).To(Equal("add"))
		Expect(rec.InputsJSON).To(Equal(`[{"name":"x","value":"2"}]`))
		Expect(rec.OutputsJSON).To(Equal("[]"))
		Expect(rec.Success).To(BeTrue())
	})
})
