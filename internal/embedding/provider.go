package embedding

import (
	"fmt"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Options configures the real embedding providers. BaseURL and Model fall
// back to the provider's defaults when empty.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient creates an embedding client based on the provider name.
// Returns an error if the provider is unknown or the API key is empty
// (except for mock).
func NewClient(provider string, opts Options) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Model), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, mock)", provider)
	}
}
