package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/config"
	"github.com/fyrsmithlabs/researchd/internal/registry"
	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

func TestFactoryMemoizesRegistryAndStore(t *testing.T) {
	f := NewFactory(t.TempDir(), zap.NewNop())
	assert.Same(t, f.ConfigStore(), f.ConfigStore())
	assert.Same(t, f.Registry(), f.Registry())
}

func TestRepositoryDataDirLayout(t *testing.T) {
	dataDir := t.TempDir()
	f := NewFactory(dataDir, zap.NewNop())
	assert.Equal(t, filepath.Join(dataDir, "repositories", "docs"), f.RepositoryDataDir("docs"))
}

func TestForRepositoryUnknownName(t *testing.T) {
	f := NewFactory(t.TempDir(), zap.NewNop())
	_, err := f.ForRepository("missing")
	require.ErrorIs(t, err, registry.ErrRepositoryNotFound)
}

func TestForRepositoryBuildsWorkingServices(t *testing.T) {
	dataDir := t.TempDir()
	repoDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "a.md"), []byte("# Hello\n\nbody"), 0o600))

	f := NewFactory(dataDir, zap.NewNop())
	_, err := f.Registry().Add(registry.AddOptions{
		Name:              "docs",
		Path:              repoDir,
		EmbeddingProvider: config.ProviderOllama,
	})
	require.NoError(t, err)

	svcs, err := f.ForRepository("docs")
	require.NoError(t, err)
	t.Cleanup(func() { _ = svcs.Close() })

	assert.Equal(t, "docs", svcs.Repo.Name)
	assert.NotNil(t, svcs.Indexer)
	assert.NotNil(t, svcs.Searcher)

	// Stats works without any model server: it only touches local state
	stats, err := svcs.Indexer.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalDocuments)
	assert.Equal(t, 0, stats.TotalFragments)

	// Per-repo state landed under <data>/repositories/<name>/
	_, err = os.Stat(filepath.Join(dataDir, "repositories", "docs"))
	require.NoError(t, err)
}

func TestForRepositoryFreshStorePerCall(t *testing.T) {
	dataDir := t.TempDir()
	f := NewFactory(dataDir, zap.NewNop())
	_, err := f.Registry().Add(registry.AddOptions{Name: "docs", Path: t.TempDir()})
	require.NoError(t, err)

	first, err := f.ForRepository("docs")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := f.ForRepository("docs")
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestQdrantBackendRejectsNativeProvider(t *testing.T) {
	dataDir := t.TempDir()
	store := config.NewStore(dataDir)
	require.NoError(t, store.Save(&config.Config{
		DataDir:       dataDir,
		VectorBackend: config.BackendQdrant,
	}))

	f := NewFactory(dataDir, zap.NewNop())
	_, err := f.Registry().Add(registry.AddOptions{Name: "docs", Path: t.TempDir()})
	require.NoError(t, err)

	_, err = f.ForRepository("docs")
	require.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}
