package embeddings

import (
	"context"
	"fmt"
	"os"
	"sync"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

// openaiProvider generates embeddings through the OpenAI API or any
// OpenAI-compatible endpoint (set BaseURL).
type openaiProvider struct {
	cfg ProviderConfig

	once     sync.Once
	embedder *lcembeddings.EmbedderImpl
	initErr  error
}

func newOpenAIProvider(cfg ProviderConfig) *openaiProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return &openaiProvider{cfg: cfg}
}

func (p *openaiProvider) init() (*lcembeddings.EmbedderImpl, error) {
	p.once.Do(func() {
		opts := []openai.Option{
			openai.WithModel(p.cfg.Model),
			openai.WithEmbeddingModel(p.cfg.Model),
		}
		if p.cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.cfg.BaseURL))
		}
		if p.cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(p.cfg.APIKey))
		}

		llm, err := openai.New(opts...)
		if err != nil {
			p.initErr = fmt.Errorf("creating openai client: %w", err)
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

func (p *openaiProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	embedder, err := p.init()
	if err != nil {
		return nil, err
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents via openai: %w", err)
	}
	return vectors, nil
}

func (p *openaiProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embedder, err := p.init()
	if err != nil {
		return nil, err
	}

	vector, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query via openai: %w", err)
	}
	return vector, nil
}

func (p *openaiProvider) Name() string { return config.ProviderOpenAI }

func (p *openaiProvider) Close() error { return nil }
