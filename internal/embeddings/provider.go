// Package embeddings provides embedding generation via multiple providers.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

var (
	// ErrUnknownProvider indicates an unrecognized provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")

	// ErrNativeProvider is returned when embedding is requested from the
	// native provider; the vector store embeds internally instead.
	ErrNativeProvider = errors.New("native provider does not embed explicitly")

	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")
)

// Default models per provider.
const (
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = "text-embedding-3-small"
)

// Provider generates vector embeddings from text.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts, one vector
	// per input, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Name returns the resolved provider name.
	Name() string

	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider name: "native", "ollama" or "openai".
	// "chromadb" is accepted as a legacy alias of "native".
	Provider string

	// Model overrides the provider's default model.
	Model string

	// BaseURL overrides the provider's API endpoint (Ollama server URL or
	// an OpenAI-compatible base URL).
	BaseURL string

	// APIKey is the API key for OpenAI-compatible endpoints.
	APIKey string
}

// New creates an embedding provider from the configuration.
//
// Unknown provider names fail here, at construction, not at first use.
// Heavy client setup is still deferred to the first embedding call.
func New(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderNative, "chromadb", "":
		return &nativeProvider{}, nil
	case config.ProviderOllama:
		return newOllamaProvider(cfg), nil
	case config.ProviderOpenAI:
		return newOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// IsNative reports whether the provider delegates embedding to the store.
func IsNative(p Provider) bool {
	_, ok := p.(*nativeProvider)
	return ok
}

// nativeProvider marks configurations where the vector store embeds
// internally. Its embedding methods are never called on the indexing path;
// they fail loudly if wired by mistake.
type nativeProvider struct{}

func (p *nativeProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrNativeProvider
}

func (p *nativeProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrNativeProvider
}

func (p *nativeProvider) Name() string { return config.ProviderNative }

func (p *nativeProvider) Close() error { return nil }
