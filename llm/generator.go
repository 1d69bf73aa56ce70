package llm

import (
	"context"
	"fmt"
	"sync"
)

// Generator is the text-completion capability the planner and solvers use.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return f(ctx, prompt, maxTokens, temperature)
}

// ProviderGenerator sends each prompt as a single user message to a chat
// provider and accumulates token usage across calls.
type ProviderGenerator struct {
	provider Provider
	model    string
	system   string

	mu    sync.Mutex
	usage Usage
	calls int
}

// NewGenerator creates a generator for the given provider and API model name.
func NewGenerator(provider Provider, model string) *ProviderGenerator {
	return &ProviderGenerator{provider: provider, model: model}
}

// WithSystemPrompt sets a system message sent ahead of every prompt.
func (g *ProviderGenerator) WithSystemPrompt(system string) *ProviderGenerator {
	g.system = system
	return g
}

func (g *ProviderGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	var messages []Message
	if g.system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: g.system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	resp, err := g.provider.Chat(ctx, &ChatRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", g.model, err)
	}

	g.mu.Lock()
	g.usage = g.usage.Add(resp.Usage)
	g.calls++
	g.mu.Unlock()

	return resp.Content, nil
}

// Model returns the API model name.
func (g *ProviderGenerator) Model() string {
	return g.model
}

// Usage returns the accumulated token usage and the number of calls made.
func (g *ProviderGenerator) Usage() (Usage, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usage, g.calls
}
