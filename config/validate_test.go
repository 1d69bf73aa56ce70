package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/config"
)

var _ = Describe("Validate", func() {
	load := func(extra string) error {
		_, f := writeFixture("main.hcl", fullBaseHCL()+extra)
		_, err := config.LoadAndValidate(f)
		return err
	}

	It("requires an executor", func() {
		_, f := writeFixture("main.hcl", minimalVarsHCL()+minimalModelHCL())
		_, err := config.LoadAndValidate(f)
		Expect(err).To(MatchError("executor block is required"))
	})

	It("requires the executor model to be allowed", func() {
		cfg := &config.Config{
			Models:   []config.Model{{Name: "a", Provider: config.ProviderAnthropic, AllowedModels: []string{"claude_opus_4"}, APIKey: "k"}},
			Executor: &config.ExecutorConfig{Model: "claude_sonnet_4"},
		}
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("not allowed by any model block")))
	})

	DescribeTable("rejects invalid blocks",
		func(extra, message string) {
			Expect(load(extra)).To(MatchError(ContainSubstring(message)))
		},
		Entry("unknown solver type", `
solver "x" {
  type = "teleport"
}`, "unknown type 'teleport'"),
		Entry("instruct without instruction", `
solver "x" {
  type = "instruct"
}`, "instruction is required"),
		Entry("command without command", `
solver "x" {
  type = "command"
}`, "command is required"),
		Entry("model on a shell solver", `
solver "x" {
  type  = "shell"
  model = models.anthropic.claude_sonnet_4
}`, "model only applies to instruct solvers"),
		Entry("duplicate solvers", `
solver "x" {
  type = "shell"
}
solver "x" {
  type = "http_get"
}`, "solver 'x' is declared more than once"),
		Entry("plugin with path and version", `
plugin "p" {
  path    = "./p"
  version = "v1.0.0"
}`, "mutually exclusive"),
		Entry("plugin with a bad version", `
plugin "p" {
  version = "latest"
}`, "invalid version 'latest'"),
		Entry("mcp with both transports", `
mcp "m" {
  command = "srv"
  url     = "http://localhost/sse"
}`, "exactly one of command or url"),
		Entry("postgres without dsn", `
storage {
  backend = "postgres"
}`, "dsn is required"),
		Entry("unknown storage backend", `
storage {
  backend = "redis"
}`, "unknown backend 'redis'"),
		Entry("empty prompt", `
prompt "plan" {
  template = ""
}`, "template must not be empty"),
	)

	It("rejects an out of range temperature", func() {
		e := &config.ExecutorConfig{Model: "m", Temperature: 3}
		Expect(e.Validate()).To(MatchError("temperature must be between 0 and 2"))
	})

	It("rejects secret variables with defaults", func() {
		_, f := writeFixture("main.hcl", fullBaseHCL()+`
variable "token" {
  secret  = true
  default = "oops"
}`)
		_, err := config.LoadAndValidate(f)
		Expect(err).To(MatchError(ContainSubstring("secret variable 'token'")))
	})
})

var _ = Describe("Model", func() {
	It("accepts bedrock without an api key", func() {
		m := config.Model{Name: "aws", Provider: config.ProviderBedrock, AllowedModels: []string{"claude_sonnet_4"}, Region: "us-east-1"}
		Expect(m.Validate()).To(Succeed())
		Expect(m.APIModel("claude_sonnet_4")).To(Equal("claude-sonnet-4-20250514"))
	})

	It("requires an api key elsewhere", func() {
		m := config.Model{Name: "oa", Provider: config.ProviderOpenAI, AllowedModels: []string{"gpt_4o"}}
		Expect(m.Validate()).To(MatchError(ContainSubstring("api_key is required")))
	})

	It("rejects unsupported models and providers", func() {
		m := config.Model{Name: "oa", Provider: config.ProviderOpenAI, AllowedModels: []string{"claude_sonnet_4"}, APIKey: "k"}
		Expect(m.Validate()).To(MatchError(ContainSubstring("not supported for provider 'openai'")))

		m = config.Model{Name: "x", Provider: "mystery", AllowedModels: []string{"a"}, APIKey: "k"}
		Expect(m.Validate()).To(MatchError("unsupported provider 'mystery'"))
	})

	It("prices usage by API model name", func() {
		m := config.Model{Provider: config.ProviderAnthropic, AllowedModels: []string{"claude_sonnet_4"}}
		Expect(m.Cost("claude_sonnet_4", 1_000_000, 1_000_000)).To(BeNumerically("~", 18.0))
		Expect(config.CalculateCost("unknown", 10, 10)).To(BeZero())
	})
})
