package planner_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/planner"
	"taskweave/prompts"
	"taskweave/solvers"
	"taskweave/workflow"
)

const twoStepPlan = `Here is the plan:
` + "```json" + `
{
  "problem": "Compute 2+2 and say hi",
  "subtasks": [
    {"id": "calc", "task": "Compute 2+2", "tool": "calculator", "inputs": ["2+2"]},
    {"id": "greet", "task": "Say hi", "tool": "greeter", "inputs": "user_request"}
  ],
  "final_response": {"task": "Report both", "inputs": ["calc", "greet"]}
}
` + "```"

var _ = Describe("ChatStrategy", func() {
	var (
		state    *workflow.State
		registry []workflow.Solver
	)

	newStrategy := func(gen *scripted) *planner.ChatStrategy {
		return planner.NewChatStrategy(gen, prompts.NewLibrary())
	}

	BeforeEach(func() {
		state = workflow.NewState("Compute 2+2 and say hi")
		lib := prompts.NewLibrary()
		registry = []workflow.Solver{
			constant("calculator", "4"),
			constant("greeter", "hi"),
			solvers.NewAggregator(script(), lib),
			solvers.NewValidator(script(), lib),
		}
	})

	Describe("DecomposeTask", func() {
		It("builds one child per subtask plus a trailing aggregator", func() {
			gen := script(twoStepPlan)
			plan, err := newStrategy(gen).DecomposeTask(context.Background(), state, registry)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan).To(HaveLen(1))

			sub := plan[0]
			Expect(sub.Root.ID).To(Equal(state.SolveRoot().Root.ID))
			Expect(sub.Children).To(HaveLen(3))
			Expect(sub.Children[0].Root.ID).To(Equal("calc"))
			Expect(sub.Children[0].Root.Tool).To(Equal("calculator"))
			Expect(sub.Children[0].Root.Inputs).To(Equal([]string{"2+2"}))
			Expect(sub.Children[1].Root.Inputs).To(Equal([]string{"user_request"}))

			agg := sub.Children[2].Root
			Expect(agg.Tool).To(Equal(solvers.AggregatorName))
			Expect(agg.Inputs).To(Equal([]string{"calc", "greet"}))
			Expect(agg.Description).To(Equal("Report both"))
		})

		It("lists the plannable tools in the prompt", func() {
			gen := script(twoStepPlan)
			_, err := newStrategy(gen).DecomposeTask(context.Background(), state, registry)
			Expect(err).NotTo(HaveOccurred())
			Expect(gen.prompts[0]).To(ContainSubstring("- calculator: always answers 4"))
			Expect(gen.prompts[0]).To(ContainSubstring("Compute 2+2 and say hi"))
			Expect(gen.prompts[0]).NotTo(ContainSubstring("- Validator:"))
		})

		It("is a no-op once the root has children", func() {
			gen := script(twoStepPlan)
			strategy := newStrategy(gen)
			plan, err := strategy.DecomposeTask(context.Background(), state, registry)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.UpdateTasking(plan)).To(Succeed())

			again, err := strategy.DecomposeTask(context.Background(), state, registry)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeEmpty())
			Expect(gen.calls()).To(Equal(1))
		})

		It("is a no-op once the root was planned", func() {
			gen := script()
			state.MarkPlanned(state.SolveRoot().Root.ID)
			plan, err := newStrategy(gen).DecomposeTask(context.Background(), state, registry)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan).To(BeEmpty())
			Expect(gen.calls()).To(BeZero())
		})

		It("leaves an atomic request undecomposed", func() {
			gen := script(`{"problem": "Say hi", "subtasks": [{"id": "t", "task": " say HI ", "tool": "greeter"}]}`)
			state = workflow.NewState("Say hi")
			plan, err := newStrategy(gen).DecomposeTask(context.Background(), state, registry)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan).To(BeEmpty())
			Expect(state.SolveRoot().IsLeaf()).To(BeTrue())
		})

		It("numbers subtasks without ids and defaults aggregator inputs", func() {
			gen := script(`{"problem": "p", "subtasks": [
				{"task": "a", "tool": "calculator"},
				{"task": "b", "tool": "greeter", "inputs": ["task1", 7]}
			]}`)
			plan, err := newStrategy(gen).DecomposeTask(context.Background(), state, registry)
			Expect(err).NotTo(HaveOccurred())
			children := plan[0].Children
			Expect(children[0].Root.ID).To(Equal("task1"))
			Expect(children[1].Root.ID).To(Equal("task2"))
			Expect(children[1].Root.Inputs).To(Equal([]string{"task1", "7"}))
			Expect(children[2].Root.Inputs).To(Equal([]string{"task1", "task2"}))
		})

		DescribeTable("rejects malformed plans",
			func(response, reason string) {
				_, err := newStrategy(script(response)).DecomposeTask(context.Background(), state, registry)
				Expect(errors.Is(err, workflow.ErrPlanningParse)).To(BeTrue())
				var perr *workflow.PlanningParseError
				Expect(errors.As(err, &perr)).To(BeTrue())
				Expect(perr.Response).To(Equal(response))
				Expect(perr.Error()).To(ContainSubstring(reason))
			},
			Entry("prose", "I would first compute things.", "no JSON object"),
			Entry("broken json", `{"problem": "x", "subtasks": [`, "no JSON object"),
			Entry("bad inputs", `{"problem": "x", "subtasks": [{"task": "a", "tool": "t", "inputs": {"k": 1}}]}`, "invalid plan JSON"),
			Entry("no subtasks", `{"problem": "x", "subtasks": []}`, "no subtasks"),
			Entry("duplicate ids", `{"problem": "x", "subtasks": [{"id": "a", "task": "1", "tool": "t"}, {"id": "a", "task": "2", "tool": "t"}]}`, "duplicate subtask id 'a'"),
		)
	})

	Describe("NextSolver", func() {
		var strategy *planner.ChatStrategy

		BeforeEach(func() {
			strategy = newStrategy(script(twoStepPlan))
			plan, err := strategy.DecomposeTask(context.Background(), state, registry)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.UpdateTasking(plan)).To(Succeed())
		})

		complete := func(task *workflow.Task) {
			state.Tree.SetTaskDone(task.ID)
		}

		It("walks tool tasks depth first, then the validator", func() {
			var order []string
			for i := 0; i < 4; i++ {
				task, solver, err := strategy.NextSolver(context.Background(), state, registry)
				Expect(err).NotTo(HaveOccurred())
				order = append(order, solver.Name())
				complete(task)
			}
			Expect(order).To(Equal([]string{"calculator", "greeter", solvers.AggregatorName, solvers.ValidatorName}))

			_, _, err := strategy.NextSolver(context.Background(), state, registry)
			Expect(errors.Is(err, workflow.ErrTaskNotFound)).To(BeTrue())
		})

		It("reports a tool with no registered solver", func() {
			_, _, err := strategy.NextSolver(context.Background(), state, registry[1:])
			var notFound *workflow.ToolNotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Tool).To(Equal("calculator"))
			Expect(notFound.TaskID).To(Equal("calc"))
		})

		It("matches tool names exactly", func() {
			_, _, err := strategy.NextSolver(context.Background(), state, []workflow.Solver{constant("Calculator", "4")})
			Expect(errors.Is(err, workflow.ErrToolNotFound)).To(BeTrue())
		})
	})

	It("answers an atomic root with the aggregator", func() {
		task, solver, err := newStrategy(script()).NextSolver(context.Background(), state, registry)
		Expect(err).NotTo(HaveOccurred())
		Expect(task.Kind).To(Equal(workflow.KindSolveRoot))
		Expect(solver.Name()).To(Equal(solvers.AggregatorName))
	})
})
