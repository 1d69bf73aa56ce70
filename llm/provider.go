package llm

import (
	"context"
	"fmt"
)

// ProviderOptions carries what NewProvider needs for each backend.
type ProviderOptions struct {
	APIKey string
	// Region and Profile apply to bedrock only
	Region  string
	Profile string
}

// NewProvider builds the provider for a backend name: anthropic, openai,
// gemini or bedrock.
func NewProvider(ctx context.Context, kind string, opts ProviderOptions) (Provider, error) {
	switch kind {
	case "anthropic":
		return NewAnthropicProvider(opts.APIKey), nil
	case "openai":
		return NewOpenAIProvider(opts.APIKey), nil
	case "gemini":
		p, err := NewGeminiProvider(ctx, opts.APIKey)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return p, nil
	case "bedrock":
		p, err := NewBedrockProvider(ctx, opts.Region, opts.Profile)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported provider '%s'", kind)
	}
}
