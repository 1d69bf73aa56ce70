package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/config"
)

var _ = Describe("Loading", func() {
	It("resolves vars and model references", func() {
		_, f := writeFixture("main.hcl", fullBaseHCL())
		cfg, err := config.LoadAndValidate(f)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Models).To(HaveLen(1))
		Expect(cfg.Models[0].APIKey).To(Equal("test-key-123"))
		Expect(cfg.Executor.Model).To(Equal("claude_sonnet_4"))
		Expect(cfg.Executor.MaxSteps).To(Equal(8))
		Expect(cfg.ResolvedVars).To(HaveKey("test_api_key"))

		m, err := cfg.ModelFor(cfg.Executor.Model)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Name).To(Equal("anthropic"))
		Expect(m.APIModel("claude_sonnet_4")).To(Equal("claude-sonnet-4-20250514"))
	})

	It("prefers the vars file over defaults", func() {
		Expect(config.SetVar("test_api_key", "from-file")).To(Succeed())
		_, f := writeFixture("main.hcl", fullBaseHCL())
		cfg, err := config.LoadFile(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Models[0].APIKey).To(Equal("from-file"))
	})

	It("merges every file of a directory", func() {
		dir := writeFixtures(map[string]string{
			"vars.hcl":   minimalVarsHCL(),
			"models.hcl": minimalModelHCL(),
			"main.hcl": minimalExecutorHCL() + `
solver "summarize" {
  type        = "instruct"
  description = "Summarizes text"
  instruction = "Summarize the input in one sentence."
}

solver "shell" {
  type = "shell"
}
`,
		})
		cfg, err := config.LoadAndValidate(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Solvers).To(HaveLen(2))
		Expect(cfg.Solvers[0].Name).To(Equal("summarize"))
		Expect(cfg.Solvers[0].Instruction).To(ContainSubstring("one sentence"))
	})

	It("errors on an empty directory", func() {
		_, err := config.LoadDir(GinkgoT().TempDir())
		Expect(err).To(MatchError(ContainSubstring("no .hcl files")))
	})

	It("decodes every block kind", func() {
		_, f := writeFixture("main.hcl", fullBaseHCL()+`
prompt_library = "prompts.yaml"

prompt "plan" {
  template = "Plan {{.Request}}"
}

plugin "echo" {
  path     = "./bin/echo"
  settings = { prefix = ">" }
}

mcp "files" {
  command = "mcp-files"
  args    = ["--root", "."]
  env     = { B = "2", A = "1" }
}

storage {
  backend = "postgres"
  dsn     = "postgres://localhost/taskweave"
}

bridge {
  url = "ws://localhost:9000/ws"
}

server {
  address = ":9090"
}
`)
		cfg, err := config.LoadAndValidate(f)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.PromptLibrary).To(Equal("prompts.yaml"))
		Expect(cfg.Prompts).To(ConsistOf(config.Prompt{Name: "plan", Template: "Plan {{.Request}}"}))
		Expect(cfg.Plugins[0].Settings).To(HaveKeyWithValue("prefix", ">"))
		Expect(cfg.MCP[0].Environ()).To(Equal([]string{"A=1", "B=2"}))
		Expect(cfg.Storage.Backend).To(Equal(config.BackendPostgres))
		Expect(cfg.Bridge.InstanceName).To(Equal("taskweave"))
		Expect(cfg.Bridge.ReconnectInterval).To(Equal(5))
		Expect(cfg.ServerOrDefault().Address).To(Equal(":9090"))
	})

	It("applies defaults for missing optional blocks", func() {
		_, f := writeFixture("main.hcl", fullBaseHCL())
		cfg, err := config.LoadFile(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage).To(BeNil())
		Expect(cfg.StorageOrDefault().Backend).To(Equal(config.BackendSQLite))
		Expect(cfg.StorageOrDefault().Path).To(Equal(".taskweave/runs.db"))
		Expect(cfg.ServerOrDefault().Address).To(Equal(":8080"))
	})

	It("rejects duplicate singleton blocks", func() {
		_, f := writeFixture("main.hcl", fullBaseHCL()+minimalExecutorHCL())
		_, err := config.LoadFile(f)
		Expect(err).To(MatchError(ContainSubstring("executor block is declared more than once")))
	})

	It("rejects unknown blocks", func() {
		_, f := writeFixture("main.hcl", fullBaseHCL()+`
agent "old" {}
`)
		_, err := config.LoadFile(f)
		Expect(err).To(HaveOccurred())
	})

	It("reports parse errors with the file name", func() {
		_, f := writeFixture("broken.hcl", `model "x" {`)
		_, err := config.LoadFile(f)
		Expect(err).To(MatchError(ContainSubstring("broken.hcl")))
	})

	It("errors on a missing path", func() {
		_, err := config.Load(filepath.Join(os.TempDir(), "does-not-exist-taskweave"))
		Expect(err).To(HaveOccurred())
	})
})
