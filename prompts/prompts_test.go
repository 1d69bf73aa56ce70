package prompts_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/prompts"
)

var _ = Describe("Library", func() {
	var lib *prompts.Library

	BeforeEach(func() {
		lib = prompts.NewLibrary()
	})

	It("ships the built-in templates", func() {
		Expect(lib.IDs()).To(Equal([]string{"aggregate", "instruct", "planner", "validate"}))
	})

	It("lists placeholders of the planner template", func() {
		names, err := lib.Placeholders(prompts.Planner)
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(ConsistOf("tools", "user_request"))
	})

	It("fills every placeholder", func() {
		out, err := lib.Fill(prompts.Validate, map[string]string{
			"user_request":    "say hi",
			"proposed_result": "hi",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("say hi"))
		Expect(out).To(ContainSubstring("isRequestAnswered"))
		Expect(out).NotTo(ContainSubstring("{{"))
	})

	It("does not rescan substituted values", func() {
		lib.Set("echo", "value: {{v}}")
		out, err := lib.Fill("echo", map[string]string{"v": "{{other}}"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("value: {{other}}"))
	})

	It("errors on a missing parameter", func() {
		_, err := lib.Fill(prompts.Instruct, map[string]string{"instruction": "x"})
		Expect(err).To(MatchError(ContainSubstring("no value for input")))
	})

	It("errors on an unknown template", func() {
		_, err := lib.Fill("nope", nil)
		Expect(err).To(MatchError(ContainSubstring("'nope' not found")))
	})

	Describe("LoadYAML", func() {
		write := func(content string) string {
			path := filepath.Join(GinkgoT().TempDir(), "prompts.yaml")
			Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
			return path
		}

		It("overrides and adds templates", func() {
			path := write("prompts:\n  validate: \"check {{proposed_result}}\"\n  greet: \"hello {{name}}\"\n")
			Expect(lib.LoadYAML(path)).To(Succeed())

			out, err := lib.Fill("greet", map[string]string{"name": "ada"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("hello ada"))

			t, _ := lib.Template(prompts.Validate)
			Expect(t).To(Equal("check {{proposed_result}}"))
		})

		It("rejects a file without prompts", func() {
			Expect(lib.LoadYAML(write("other: 1\n"))).To(MatchError(ContainSubstring("has no prompts")))
		})

		It("rejects malformed yaml", func() {
			Expect(lib.LoadYAML(write("prompts: [\n"))).To(HaveOccurred())
		})
	})
})
