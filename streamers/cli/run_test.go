package cli_test

import (
	"bytes"
	"errors"
	"strings"

	"github.com/fatih/color"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/streamers/cli"
)

var _ = Describe("RunHandler", func() {
	var (
		buf     *bytes.Buffer
		handler *cli.RunHandler
	)

	BeforeEach(func() {
		color.NoColor = true
		buf = &bytes.Buffer{}
		handler = cli.NewWriterHandler(buf)
	})

	It("renders a run as plain progress lines", func() {
		handler.User("Compute 2+2 and say hi")
		handler.Progress("Step 1 of 8")
		handler.PlanningTask("calc", "Compute 2+2")
		handler.PlanningTask("greet", "Say hi")
		handler.UsingTool("calculator", "2+2")
		handler.ToolResult("calculator", "result=4")
		handler.Error(errors.New("greeter failed"))
		handler.Response("4 and hi")

		out := buf.String()
		Expect(out).To(ContainSubstring("Compute 2+2 and say hi"))
		Expect(out).To(ContainSubstring("1. Compute 2+2 [calc]"))
		Expect(out).To(ContainSubstring("2. Say hi [greet]"))
		Expect(out).To(ContainSubstring("Calling calculator (2+2)"))
		Expect(out).To(ContainSubstring("✓ calculator result=4"))
		Expect(out).To(ContainSubstring("✗ greeter failed"))
		Expect(out).To(ContainSubstring("=== Answer ==="))
		Expect(out).To(ContainSubstring("4 and hi"))
	})

	It("truncates long outputs", func() {
		handler.ToolResult("reader", strings.Repeat("x", 500))
		Expect(buf.String()).To(ContainSubstring("..."))
		Expect(len(buf.String())).To(BeNumerically("<", 300))
	})
})
