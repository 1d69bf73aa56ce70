package config_test

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/config"
)

var _ = Describe("Vars file", func() {
	It("starts empty", func() {
		vars, err := config.LoadVarsFromFile()
		Expect(err).NotTo(HaveOccurred())
		Expect(vars).To(BeEmpty())
	})

	It("sets, lists and deletes", func() {
		Expect(config.SetVar("b", "2")).To(Succeed())
		Expect(config.SetVar("a", "x=y")).To(Succeed())

		names, err := config.ListVars()
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"a", "b"}))

		v, err := config.GetVar("a")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("x=y"))

		Expect(config.DeleteVar("a")).To(Succeed())
		_, err = config.GetVar("a")
		Expect(err).To(MatchError("variable 'a' not found"))
		Expect(config.DeleteVar("a")).To(MatchError("variable 'a' not found"))
	})

	It("skips comments and blank lines", func() {
		path, err := config.GetVarsFilePath()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(path, []byte("# comment\n\nkey=value\nnoequals\n"), 0600)).To(Succeed())

		vars, err := config.LoadVarsFromFile()
		Expect(err).NotTo(HaveOccurred())
		Expect(vars).To(Equal(map[string]string{"key": "value"}))
	})

	It("rejects invalid names", func() {
		Expect(config.SetVar("bad name", "v")).To(MatchError(ContainSubstring("invalid variable name")))
	})

	It("resolves plugin binaries under the home directory", func() {
		p := config.Plugin{Name: "echo", Version: "v1.2.3"}
		path, err := p.BinaryPath()
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix("plugins/echo/v1.2.3/plugin"))
		Expect(path).To(HavePrefix(os.Getenv("TASKWEAVE_HOME")))
	})
})
