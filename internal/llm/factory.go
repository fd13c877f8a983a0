package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
)

const (
	ProviderGoogleAI  = "googleai"
	ProviderAnthropic = "anthropic"

	defaultEmbeddingModel = "text-embedding-004"
)

// Backend is a constructed model plus, when the provider offers one, a query
// embedder for retrieval.
type Backend struct {
	Model    llms.Model
	Embedder embeddings.Embedder
}

// NewBackend builds the model for provider.
func NewBackend(ctx context.Context, provider, apiKey, model string) (*Backend, error) {
	switch provider {
	case ProviderGoogleAI, "":
		client, err := googleai.New(ctx,
			googleai.WithAPIKey(apiKey),
			googleai.WithDefaultModel(model),
			googleai.WithDefaultEmbeddingModel(defaultEmbeddingModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create googleai client: %w", err)
		}
		embedder, err := embeddings.NewEmbedder(client)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return &Backend{Model: client, Embedder: embedder}, nil

	case ProviderAnthropic:
		client, err := anthropic.New(
			anthropic.WithToken(apiKey),
			anthropic.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		return &Backend{Model: client}, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
