package config

import (
	"fmt"
	"sort"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

var anthropicModels = map[string]string{
	"claude_sonnet_4":   "claude-sonnet-4-20250514",
	"claude_opus_4":     "claude-opus-4-20250514",
	"claude_3_5_haiku":  "claude-3-5-haiku-20241022",
	"claude_3_5_sonnet": "claude-3-5-sonnet-20241022",
}

// SupportedModels maps provider to their supported model names.
// The keys are the names used in HCL references (models.<name>.<key>).
var SupportedModels = map[Provider]map[string]string{
	ProviderOpenAI: {
		"gpt_4o":      "gpt-4o",
		"gpt_4o_mini": "gpt-4o-mini",
		"gpt_4_turbo": "gpt-4-turbo",
		"o1":          "o1",
		"o1_mini":     "o1-mini",
		"o3_mini":     "o3-mini",
	},
	ProviderGemini: {
		"gemini_2_0_flash":     "gemini-2.0-flash",
		"gemini_1_5_pro":       "gemini-1.5-pro",
		"gemini_1_5_flash":     "gemini-1.5-flash",
		"gemini_2_0_flash_exp": "gemini-2.0-flash-exp",
	},
	ProviderAnthropic: anthropicModels,
	// Bedrock serves the Anthropic family; the llm package maps names to
	// inference profiles.
	ProviderBedrock: anthropicModels,
}

// Model is one provider account and the model keys it may serve.
type Model struct {
	Name          string   `hcl:"name,label"`
	Provider      Provider `hcl:"provider"`
	AllowedModels []string `hcl:"allowed_models"`
	APIKey        string   `hcl:"api_key,optional"`
	Region        string   `hcl:"region,optional"`
	Profile       string   `hcl:"profile,optional"`
}

func (m *Model) Validate() error {
	supportedForProvider, ok := SupportedModels[m.Provider]
	if !ok {
		return fmt.Errorf("unsupported provider '%s'", m.Provider)
	}
	if len(m.AllowedModels) == 0 {
		return fmt.Errorf("allowed_models must not be empty")
	}
	for _, key := range m.AllowedModels {
		if _, ok := supportedForProvider[key]; !ok {
			return fmt.Errorf("model '%s' is not supported for provider '%s'. Supported models: %v", key, m.Provider, sortedKeys(supportedForProvider))
		}
	}
	if m.Provider != ProviderBedrock && m.APIKey == "" {
		return fmt.Errorf("api_key is required for provider '%s'", m.Provider)
	}
	return nil
}

// Allows reports whether key is one of the allowed model keys.
func (m *Model) Allows(key string) bool {
	for _, k := range m.AllowedModels {
		if k == key {
			return true
		}
	}
	return false
}

// APIModel returns the provider's name for a model key.
func (m *Model) APIModel(key string) string {
	if name, ok := SupportedModels[m.Provider][key]; ok {
		return name
	}
	return key
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
