package cmd

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/config"
	"taskweave/schema"
)

var _ = Describe("verify", func() {
	It("summarizes a valid config", func() {
		out, err := execute("verify", writeConfig(baseConfig))
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Configuration is valid!"))
		Expect(out).To(ContainSubstring("Executor: model claude_sonnet_4, max 5 steps"))
		Expect(out).To(ContainSubstring("  - wc (command)"))
		Expect(out).To(ContainSubstring("Storage: memory"))
	})

	It("returns validation errors", func() {
		_, err := execute("verify", writeConfig(`
solver "x" {
  type = "teleport"
}
`))
		Expect(err).To(MatchError("executor block is required"))
	})
})

var _ = Describe("solvers", func() {
	It("lists built-in and configured solvers", func() {
		out, err := execute("solvers", "--config", writeConfig(baseConfig), "--storage", "memory")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Aggregator (v"))
		Expect(out).To(ContainSubstring("Validator (v"))
		Expect(out).To(ContainSubstring("shell (v1.0.0)"))
		Expect(out).To(ContainSubstring("inputs:  command:string*"))
		Expect(out).To(ContainSubstring("Counts words"))
	})

	It("rejects duplicate names", func() {
		_, err := execute("solvers", "--config", writeConfig(baseConfig+`
solver "Aggregator" {
  type = "http_get"
}
`), "--storage", "memory")
		Expect(err).To(MatchError(ContainSubstring("solver 'Aggregator' from config is already registered")))
	})
})

var _ = Describe("history", func() {
	It("reports an empty store", func() {
		out, err := execute("history", "--config", writeConfig(baseConfig), "--storage", "memory")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No runs stored"))
	})

	It("errors on an unknown run", func() {
		_, err := execute("history", "missing", "--config", writeConfig(baseConfig), "--storage", "memory")
		Expect(err).To(MatchError(ContainSubstring("run not found")))
	})
})

var _ = Describe("vars", func() {
	It("masks secret-looking names", func() {
		_, err := execute("vars", "set", "openai_api_key", "sk-123")
		Expect(err).NotTo(HaveOccurred())
		_, err = execute("vars", "set", "region", "us-east-1")
		Expect(err).NotTo(HaveOccurred())

		out, err := execute("vars", "list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("openai_api_key=********\nregion=us-east-1\n"))

		v, err := config.GetVar("openai_api_key")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("sk-123"))
	})
})

var _ = Describe("helpers", func() {
	It("describes schemas with required markers", func() {
		s := schema.Object(schema.PropertyMap{
			"b": {Type: schema.TypeNumber},
			"a": {Type: schema.TypeString},
		}, "a")
		Expect(describeSchema(s)).To(Equal("a:string*, b:number"))
		Expect(describeSchema(schema.Schema{})).To(Equal("-"))
	})

	It("shortens long text", func() {
		Expect(shorten("short", 10)).To(Equal("short"))
		Expect(shorten("a much longer request", 10)).To(Equal("a much ..."))
	})

	DescribeTable("isSecretName",
		func(name string, secret bool) {
			Expect(isSecretName(name)).To(Equal(secret))
		},
		Entry("token", "github_token", true),
		Entry("password", "db_password", true),
		Entry("plain", "region", false),
	)
})
