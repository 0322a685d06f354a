// Package services is the dependency-injection root: it constructs and
// wires per-repository indexing and search services from configuration.
package services

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/config"
	"github.com/fyrsmithlabs/researchd/internal/convert"
	"github.com/fyrsmithlabs/researchd/internal/embeddings"
	"github.com/fyrsmithlabs/researchd/internal/fingerprint"
	"github.com/fyrsmithlabs/researchd/internal/indexer"
	"github.com/fyrsmithlabs/researchd/internal/registry"
	"github.com/fyrsmithlabs/researchd/internal/searcher"
	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

// Factory builds repository services on demand. It is constructed once
// at process start and passed down; nothing here is a package-level
// singleton. Store handles are fresh per ForRepository call, so callers
// own the returned Close.
type Factory struct {
	dataDir string
	logger  *zap.Logger

	mu     sync.Mutex
	store  *config.Store
	reg    *registry.Registry
	daemon *config.Config
}

// NewFactory creates a factory rooted at dataDir.
func NewFactory(dataDir string, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{dataDir: dataDir, logger: logger}
}

// DataDir returns the root data directory.
func (f *Factory) DataDir() string {
	return f.dataDir
}

// ConfigStore returns the shared configuration store.
func (f *Factory) ConfigStore() *config.Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store == nil {
		f.store = config.NewStore(f.dataDir)
	}
	return f.store
}

// Registry returns the shared repository registry.
func (f *Factory) Registry() *registry.Registry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reg == nil {
		if f.store == nil {
			f.store = config.NewStore(f.dataDir)
		}
		f.reg = registry.New(f.store, f.logger)
	}
	return f.reg
}

// DaemonConfig loads and memoizes the daemon configuration.
func (f *Factory) DaemonConfig() (*config.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.daemon == nil {
		if f.store == nil {
			f.store = config.NewStore(f.dataDir)
		}
		cfg, err := f.store.Load()
		if err != nil {
			return nil, err
		}
		f.daemon = cfg
	}
	return f.daemon, nil
}

// RepositoryDataDir returns the per-repository state directory.
func (f *Factory) RepositoryDataDir(name string) string {
	return filepath.Join(f.dataDir, "repositories", name)
}

// RepositoryServices bundles one repository's indexer and searcher with
// the store handle they share. Close releases the store.
type RepositoryServices struct {
	Repo     config.RepositoryConfig
	Indexer  *indexer.Service
	Searcher *searcher.Service

	store    vectorstore.Store
	embedder embeddings.Provider
}

// Close releases the underlying store and embedding client.
func (s *RepositoryServices) Close() error {
	if err := s.embedder.Close(); err != nil {
		return err
	}
	return s.store.Close()
}

// ForRepository builds services for the named repository.
func (f *Factory) ForRepository(name string) (*RepositoryServices, error) {
	repo, err := f.Registry().Get(name)
	if err != nil {
		return nil, err
	}
	return f.ForRepositoryConfig(repo)
}

// ForRepositoryConfig builds services for an already-resolved
// repository configuration.
func (f *Factory) ForRepositoryConfig(repo config.RepositoryConfig) (*RepositoryServices, error) {
	daemon, err := f.DaemonConfig()
	if err != nil {
		return nil, err
	}

	embedder, err := f.buildEmbedder(repo, daemon)
	if err != nil {
		return nil, err
	}

	store, err := f.buildStore(repo, daemon, embedder)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	converter := convert.NewService(convert.ServiceConfig{
		ImagePipeline:        repo.ImagePipeline,
		ImageVLMModel:        repo.ImageVLMModel,
		AudioASRModel:        repo.AudioASRModel,
		OllamaURL:            daemon.Ollama.URL,
		TranscriptionBaseURL: daemon.Transcription.BaseURL,
		TranscriptionAPIKey:  daemon.Transcription.APIKey,
	}, f.logger)

	prints := fingerprint.NewStore(filepath.Join(f.RepositoryDataDir(repo.Name), "checksums.json"))

	return &RepositoryServices{
		Repo:     repo,
		Indexer:  indexer.NewService(repo, store, embedder, converter, prints, f.logger),
		Searcher: searcher.NewService(store, embedder, f.logger),
		store:    store,
		embedder: embedder,
	}, nil
}

// buildEmbedder resolves the repository's embedding provider, falling
// back to the daemon defaults.
func (f *Factory) buildEmbedder(repo config.RepositoryConfig, daemon *config.Config) (embeddings.Provider, error) {
	provider := repo.EmbeddingProvider
	if provider == "" {
		provider = daemon.DefaultEmbeddingProvider
	}
	model := repo.EmbeddingModel
	if model == "" {
		model = daemon.DefaultEmbeddingModel
	}

	return embeddings.New(embeddings.ProviderConfig{
		Provider: provider,
		Model:    model,
		BaseURL:  daemon.Ollama.URL,
	})
}

// buildStore opens the repository's fragment store for the configured
// backend. The native provider hands a nil embedder to the embedded
// backend, which then embeds with its own default function; Qdrant
// always needs the explicit embedder.
func (f *Factory) buildStore(repo config.RepositoryConfig, daemon *config.Config, embedder embeddings.Provider) (vectorstore.Store, error) {
	var storeEmbedder vectorstore.Embedder = embedder
	if embeddings.IsNative(embedder) {
		storeEmbedder = nil
	}

	switch daemon.VectorBackend {
	case config.BackendQdrant:
		if storeEmbedder == nil {
			return nil, fmt.Errorf("%w: the qdrant backend requires an explicit embedding provider", vectorstore.ErrInvalidConfig)
		}
		return vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host:       daemon.Qdrant.Host,
			Port:       daemon.Qdrant.Port,
			UseTLS:     daemon.Qdrant.UseTLS,
			Collection: "documents_" + repo.Name,
		}, storeEmbedder, f.logger)
	default:
		return vectorstore.NewChromemStore(vectorstore.ChromemConfig{
			Path: f.RepositoryDataDir(repo.Name),
		}, storeEmbedder, f.logger)
	}
}
