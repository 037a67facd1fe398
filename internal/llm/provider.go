package llm

import (
	"fmt"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// NewClient builds the language-model collaborator for the classifier,
// synthesizer and rule-graph extraction. An empty model selects the
// provider's default.
func NewClient(provider, apiKey, model string) (domain.LLMClient, error) {
	switch provider {
	case ProviderOpenAI, ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("llm provider %q: api key is required", provider)
		}
		if provider == ProviderAnthropic {
			return NewAnthropicClient(apiKey, model), nil
		}
		return NewOpenAIClient(apiKey, model), nil
	case ProviderMock:
		return NewMockClient(), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q (valid: %s, %s, %s)", provider, ProviderOpenAI, ProviderAnthropic, ProviderMock)
}
