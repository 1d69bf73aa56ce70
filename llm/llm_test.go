package llm_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/llm"
)

var _ = Describe("ProviderGenerator", func() {
	It("sends one user message and sums usage", func() {
		p := &fakeProvider{reply: "hi", usage: llm.Usage{InputTokens: 10, OutputTokens: 3}}
		gen := llm.NewGenerator(p, "gpt-4o")

		for i := 0; i < 2; i++ {
			out, err := gen.Generate(context.Background(), "hello", 100, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("hi"))
		}

		Expect(p.requests).To(HaveLen(2))
		req := p.requests[0]
		Expect(req.Model).To(Equal("gpt-4o"))
		Expect(req.MaxTokens).To(Equal(100))
		Expect(req.Temperature).To(Equal(0.5))
		Expect(req.Messages).To(Equal([]llm.Message{{Role: llm.RoleUser, Content: "hello"}}))

		usage, calls := gen.Usage()
		Expect(calls).To(Equal(2))
		Expect(usage).To(Equal(llm.Usage{InputTokens: 20, OutputTokens: 6}))
		Expect(gen.Model()).To(Equal("gpt-4o"))
	})

	It("puts the system prompt first", func() {
		p := &fakeProvider{reply: "ok"}
		gen := llm.NewGenerator(p, "m").WithSystemPrompt("be brief")
		_, err := gen.Generate(context.Background(), "q", 10, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.requests[0].Messages[0]).To(Equal(llm.Message{Role: llm.RoleSystem, Content: "be brief"}))
	})

	It("wraps provider errors with the model", func() {
		gen := llm.NewGenerator(&fakeProvider{err: errUnavailable}, "m")
		_, err := gen.Generate(context.Background(), "q", 10, 0)
		Expect(err).To(MatchError(errUnavailable))
		Expect(err.Error()).To(ContainSubstring("generate with m"))

		_, calls := gen.Usage()
		Expect(calls).To(BeZero())
	})
})

var _ = Describe("PromptLogger", func() {
	It("writes one line per exchange", func() {
		path := filepath.Join(GinkgoT().TempDir(), "prompts.jsonl")
		inner := llm.GeneratorFunc(func(_ context.Context, prompt string, _ int, _ float64) (string, error) {
			if prompt == "bad" {
				return "", errUnavailable
			}
			return "echo " + prompt, nil
		})
		pl, err := llm.NewPromptLogger(inner, path)
		Expect(err).NotTo(HaveOccurred())

		out, err := pl.Generate(context.Background(), "one", 50, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("echo one"))
		_, err = pl.Generate(context.Background(), "bad", 50, 0)
		Expect(err).To(MatchError(errUnavailable))
		pl.Close()

		f, err := os.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		var lines []map[string]any
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var line map[string]any
			Expect(json.Unmarshal(scanner.Bytes(), &line)).To(Succeed())
			lines = append(lines, line)
		}
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(HaveKeyWithValue("prompt", "one"))
		Expect(lines[0]).To(HaveKeyWithValue("exchange", BeNumerically("==", 1)))
		Expect(lines[1]).To(HaveKeyWithValue("error", "unavailable"))
	})
})

var _ = Describe("Providers", func() {
	It("maps Anthropic names to Bedrock profiles", func() {
		Expect(llm.BedrockModelID("claude-sonnet-4-20250514")).To(Equal("us.anthropic.claude-sonnet-4-20250514-v1:0"))
		Expect(llm.BedrockModelID("custom-model")).To(Equal("custom-model"))
	})

	It("builds the key-based providers", func() {
		for _, kind := range []string{"anthropic", "openai"} {
			p, err := llm.NewProvider(context.Background(), kind, llm.ProviderOptions{APIKey: "k"})
			Expect(err).NotTo(HaveOccurred())
			Expect(p).NotTo(BeNil())
		}
	})

	It("rejects unknown providers", func() {
		_, err := llm.NewProvider(context.Background(), "mystery", llm.ProviderOptions{})
		Expect(err).To(MatchError("unsupported provider 'mystery'"))
	})
})
