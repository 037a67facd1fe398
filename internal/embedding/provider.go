package embedding

import (
	"fmt"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewClient builds the embedding collaborator used by the passage index. An
// empty model selects DefaultModel. Every provider produces vectors of
// width Dimension.
func NewClient(provider, apiKey, model string) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("embedding provider %q: OPENAI_API_KEY is required", provider)
		}
		return NewOpenAIClient(apiKey, model), nil
	case ProviderMock:
		return NewMockClient(), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q (valid: %s, %s)", provider, ProviderOpenAI, ProviderMock)
}
