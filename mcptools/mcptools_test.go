package mcptools_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/mcptools"
	"taskweave/schema"
	"taskweave/workflow"
)

var _ = Describe("Toolbox", func() {
	var (
		ctx  context.Context
		box  *mcptools.Toolbox
		byID map[string]workflow.Solver
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		box, err = mcptools.InProcess(ctx, "text", newTextServer(), nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(box.Close)

		list, err := box.Solvers(ctx)
		Expect(err).NotTo(HaveOccurred())
		byID = map[string]workflow.Solver{}
		for _, s := range list {
			byID[s.Name()] = s
		}
	})

	It("wraps every tool with its schema", func() {
		Expect(byID).To(HaveLen(3))
		reverse := byID["reverse"]
		Expect(reverse.Description()).To(Equal("Reverses text"))
		Expect(reverse.Version()).To(Equal("0.3.0"))
		Expect(reverse.InputSchema().Required).To(ConsistOf("text"))
		Expect(reverse.InputSchema().Properties["text"].Description).To(Equal("Text to reverse"))
		Expect(reverse.OutputSchema().IsRequired(workflow.OutputResult)).To(BeTrue())
		Expect(box.Name()).To(Equal("text"))
	})

	It("passes resolved text to the single required argument", func() {
		state := workflow.NewState("reverse hello")
		state.Scratchpad[workflow.Key("greet", workflow.OutputResult)] = workflow.Var{Name: "result", Value: "hello"}

		step := byID["reverse"].Solve(ctx, state, workflow.NewToolTask("rev", "rev", "reverse it", "reverse", []string{"greet"}))
		Expect(step.Success).To(BeTrue(), step.ErrorText())
		out, _ := step.Output(workflow.OutputResult)
		Expect(out.Value).To(Equal("olleh"))
	})

	It("passes a JSON object input through as arguments", func() {
		state := workflow.NewState("join")
		task := workflow.NewToolTask("j", "j", `{"left":"a","right":"b"}`, "join", nil)

		step := byID["join"].Solve(ctx, state, task)
		Expect(step.Success).To(BeTrue(), step.ErrorText())
		out, _ := step.Output(workflow.OutputResult)
		Expect(out.Value).To(Equal("a-b"))
	})

	It("fails the step when the tool reports an error", func() {
		step := byID["broken"].Solve(ctx, workflow.NewState("r"), workflow.NewToolTask("b", "b", "x", "broken", nil))
		Expect(step.Success).To(BeFalse())
		Expect(step.ErrorText()).To(ContainSubstring("broken on purpose"))
	})
})

var _ = Describe("Arguments", func() {
	DescribeTable("maps input text onto the schema",
		func(in schema.Schema, input string, want map[string]any) {
			Expect(mcptools.Arguments(in, input)).To(Equal(want))
		},
		Entry("single required property",
			schema.Object(schema.PropertyMap{"q": {Type: schema.TypeString}, "n": {Type: schema.TypeInteger}}, "q"),
			"cats", map[string]any{"q": "cats"}),
		Entry("single optional property",
			schema.Object(schema.PropertyMap{"path": {Type: schema.TypeString}}),
			"/tmp", map[string]any{"path": "/tmp"}),
		Entry("ambiguous schema",
			schema.Object(schema.PropertyMap{"a": {Type: schema.TypeString}, "b": {Type: schema.TypeString}}),
			"x", map[string]any{"input": "x"}),
		Entry("JSON object",
			schema.Object(schema.PropertyMap{"a": {Type: schema.TypeString}}, "a"),
			` {"a": "1", "b": true}`, map[string]any{"a": "1", "b": true}),
		Entry("broken JSON is plain text",
			schema.Object(schema.PropertyMap{"a": {Type: schema.TypeString}}, "a"),
			"{not json", map[string]any{"a": "{not json"}),
	)
})
