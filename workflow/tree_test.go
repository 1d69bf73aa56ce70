package workflow_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/workflow"
)

var _ = Describe("TaskTree", func() {
	var (
		tree       *workflow.TaskTree
		a, b, leaf *workflow.Task
	)

	BeforeEach(func() {
		a = workflow.NewToolTask("a", "a", "", "t", nil)
		b = workflow.NewToolTask("b", "b", "", "t", nil)
		leaf = workflow.NewToolTask("leaf", "leaf", "", "t", nil)
		parent := workflow.NewToolTask("parent", "parent", "", "t", nil)
		tree = workflow.NewTaskTree(workflow.NewUserRequest("r"),
			workflow.NewTaskTree(parent, workflow.NewTaskTree(a), workflow.NewTaskTree(b)),
			workflow.NewTaskTree(leaf),
		)
	})

	It("finds tasks in pre-order", func() {
		var seen []string
		tree.FindTask(func(t *workflow.Task) bool {
			seen = append(seen, t.ID)
			return false
		})
		Expect(seen[1:]).To(Equal([]string{"parent", "a", "b", "leaf"}))
		Expect(tree.FindByID("b").Root).To(BeIdenticalTo(b))
		Expect(tree.FindByID("nope")).To(BeNil())
	})

	It("propagates completion to ancestors", func() {
		Expect(tree.SetTaskDone("a")).To(BeTrue())
		Expect(tree.FindByID("parent").Done()).To(BeFalse())

		Expect(tree.SetTaskDone("b")).To(BeTrue())
		Expect(tree.FindByID("parent").Done()).To(BeTrue())
		Expect(tree.Done()).To(BeFalse())

		Expect(tree.SetTaskDone("leaf")).To(BeTrue())
		Expect(tree.Done()).To(BeTrue())
		Expect(tree.AllDone()).To(BeTrue())
	})

	It("reports unknown ids", func() {
		Expect(tree.SetTaskDone("ghost")).To(BeFalse())
	})

	It("panics when completing a composite with pending children", func() {
		Expect(func() { tree.SetTaskDone("parent") }).To(PanicWith(BeAssignableToTypeOf(&workflow.TreeInvariantError{})))
	})

	It("lists leaves and walks with depth", func() {
		var ids []string
		for _, l := range tree.Leaves() {
			ids = append(ids, l.Root.ID)
		}
		Expect(ids).To(Equal([]string{"a", "b", "leaf"}))

		depths := map[string]int{}
		tree.Walk(func(n *workflow.TaskTree, d int) { depths[n.Root.ID] = d })
		Expect(depths["a"]).To(Equal(2))
		Expect(depths["leaf"]).To(Equal(1))
	})

	It("clones without sharing tasks", func() {
		c := tree.Clone()
		c.SetTaskDone("leaf")
		Expect(leaf.Done).To(BeFalse())
		Expect(c.FindByID("leaf").Done()).To(BeTrue())
	})
})
