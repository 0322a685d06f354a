package embeddings

import (
	"context"
	"fmt"
	"sync"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

// ollamaProvider generates embeddings through a local Ollama server.
type ollamaProvider struct {
	cfg ProviderConfig

	once     sync.Once
	embedder *lcembeddings.EmbedderImpl
	initErr  error
}

func newOllamaProvider(cfg ProviderConfig) *ollamaProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	return &ollamaProvider{cfg: cfg}
}

// init constructs the langchaingo client on first use.
func (p *ollamaProvider) init() (*lcembeddings.EmbedderImpl, error) {
	p.once.Do(func() {
		opts := []ollama.Option{ollama.WithModel(p.cfg.Model)}
		if p.cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(p.cfg.BaseURL))
		}

		llm, err := ollama.New(opts...)
		if err != nil {
			p.initErr = fmt.Errorf("creating ollama client: %w", err)
			return
		}

		embedder, err := lcembeddings.NewEmbedder(llm)
		if err != nil {
			p.initErr = fmt.Errorf("creating embedder: %w", err)
			return
		}
		p.embedder = embedder
	})
	return p.embedder, p.initErr
}

func (p *ollamaProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	embedder, err := p.init()
	if err != nil {
		return nil, err
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents via ollama: %w", err)
	}
	return vectors, nil
}

func (p *ollamaProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embedder, err := p.init()
	if err != nil {
		return nil, err
	}

	vector, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query via ollama: %w", err)
	}
	return vector, nil
}

func (p *ollamaProvider) Name() string { return config.ProviderOllama }

func (p *ollamaProvider) Close() error { return nil }
