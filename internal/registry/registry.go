// Package registry manages the persisted repository configuration set.
package registry

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

// Sentinel errors for registry operations.
var (
	ErrRepositoryExists   = errors.New("repository already exists")
	ErrRepositoryNotFound = errors.New("repository not found")
)

// Registry performs repository CRUD over the configuration store. Every
// mutation persists the whole configuration set.
type Registry struct {
	store  *config.Store
	logger *zap.Logger
}

// New creates a Registry backed by the given configuration store.
func New(store *config.Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, logger: logger}
}

// AddOptions are the caller-provided fields for a new repository.
// Unset optional fields receive defaults.
type AddOptions struct {
	Name              string
	Path              string
	FileTypes         []string
	EmbeddingProvider string
	EmbeddingModel    string
	ExcludePatterns   []string
	ImagePipeline     string
	ImageVLMModel     string
	AudioASRModel     string
}

// Add registers a new repository. Name is the uniqueness key.
func (r *Registry) Add(opts AddOptions) (config.RepositoryConfig, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return config.RepositoryConfig{}, err
	}

	for _, repo := range cfg.Repositories {
		if repo.Name == opts.Name {
			return config.RepositoryConfig{}, fmt.Errorf("%w: %s", ErrRepositoryExists, opts.Name)
		}
	}

	repo := config.RepositoryConfig{
		Name:              opts.Name,
		Path:              opts.Path,
		FileTypes:         opts.FileTypes,
		EmbeddingProvider: opts.EmbeddingProvider,
		EmbeddingModel:    opts.EmbeddingModel,
		ExcludePatterns:   opts.ExcludePatterns,
		ImagePipeline:     opts.ImagePipeline,
		ImageVLMModel:     opts.ImageVLMModel,
		AudioASRModel:     opts.AudioASRModel,
	}
	repo.ApplyDefaults()
	if err := repo.Validate(); err != nil {
		return config.RepositoryConfig{}, err
	}

	cfg.Repositories = append(cfg.Repositories, repo)
	if err := r.store.Save(cfg); err != nil {
		return config.RepositoryConfig{}, err
	}

	r.logger.Info("repository added",
		zap.String("name", repo.Name),
		zap.String("path", repo.Path),
	)
	return repo, nil
}

// Remove deletes a repository from the configuration.
func (r *Registry) Remove(name string) error {
	cfg, err := r.store.Load()
	if err != nil {
		return err
	}

	for i, repo := range cfg.Repositories {
		if repo.Name == name {
			cfg.Repositories = append(cfg.Repositories[:i], cfg.Repositories[i+1:]...)
			if err := r.store.Save(cfg); err != nil {
				return err
			}
			r.logger.Info("repository removed", zap.String("name", name))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
}

// Get returns the named repository.
func (r *Registry) Get(name string) (config.RepositoryConfig, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return config.RepositoryConfig{}, err
	}
	for _, repo := range cfg.Repositories {
		if repo.Name == name {
			return repo, nil
		}
	}
	return config.RepositoryConfig{}, fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
}

// List returns all registered repositories.
func (r *Registry) List() ([]config.RepositoryConfig, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	return cfg.Repositories, nil
}

// UpdateOptions describes a partial update. Nil pointer fields and nil
// slices mean "leave unchanged". ExcludePatterns are merged additively,
// never replaced.
type UpdateOptions struct {
	Path              *string
	FileTypes         []string
	EmbeddingProvider *string
	EmbeddingModel    *string
	ExcludePatterns   []string
	ImagePipeline     *string
	ImageVLMModel     *string
	AudioASRModel     *string
}

// Update applies a partial update to the named repository and returns
// the updated config plus the exclude patterns that were genuinely new.
// Callers use the new-pattern list to decide whether a purge pass is
// needed.
func (r *Registry) Update(name string, opts UpdateOptions) (config.RepositoryConfig, []string, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return config.RepositoryConfig{}, nil, err
	}

	idx := -1
	for i, repo := range cfg.Repositories {
		if repo.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return config.RepositoryConfig{}, nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
	}

	repo := cfg.Repositories[idx]
	if opts.Path != nil {
		repo.Path = *opts.Path
	}
	if opts.FileTypes != nil {
		repo.FileTypes = opts.FileTypes
	}
	if opts.EmbeddingProvider != nil {
		repo.EmbeddingProvider = *opts.EmbeddingProvider
	}
	if opts.EmbeddingModel != nil {
		repo.EmbeddingModel = *opts.EmbeddingModel
	}
	if opts.ImagePipeline != nil {
		repo.ImagePipeline = *opts.ImagePipeline
	}
	if opts.ImageVLMModel != nil {
		repo.ImageVLMModel = *opts.ImageVLMModel
	}
	if opts.AudioASRModel != nil {
		repo.AudioASRModel = *opts.AudioASRModel
	}

	var added []string
	repo.ExcludePatterns, added = mergePatterns(repo.ExcludePatterns, opts.ExcludePatterns)

	repo.ApplyDefaults()
	if err := repo.Validate(); err != nil {
		return config.RepositoryConfig{}, nil, err
	}

	cfg.Repositories[idx] = repo
	if err := r.store.Save(cfg); err != nil {
		return config.RepositoryConfig{}, nil, err
	}

	r.logger.Info("repository updated",
		zap.String("name", name),
		zap.Strings("new_exclude_patterns", added),
	)
	return repo, added, nil
}

// mergePatterns appends patterns not already present, preserving order
// with first-seen-wins dedupe, and returns the merged list plus the
// genuinely new patterns.
func mergePatterns(existing, incoming []string) (merged, added []string) {
	merged = existing
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p] = true
	}
	for _, p := range incoming {
		if seen[p] {
			continue
		}
		seen[p] = true
		merged = append(merged, p)
		added = append(added, p)
	}
	return merged, added
}
