package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAbsentFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Repositories)
	assert.Equal(t, ProviderNative, cfg.DefaultEmbeddingProvider)
	assert.Equal(t, 8392, cfg.MCPPort)
	assert.Equal(t, BackendChromem, cfg.VectorBackend)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
	assert.Empty(t, cfg.Transcription.BaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mcp_port: 9999
vector_backend: qdrant
repositories:
  - name: notes
    path: /home/user/notes
    file_types: [md]
    embedding_provider: ollama
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.MCPPort)
	assert.Equal(t, BackendQdrant, cfg.VectorBackend)
	require.Len(t, cfg.Repositories, 1)

	repo := cfg.Repositories[0]
	assert.Equal(t, "notes", repo.Name)
	assert.Equal(t, []string{"md"}, repo.FileTypes)
	assert.Equal(t, ProviderOllama, repo.EmbeddingProvider)
	// Unset repo fields are defaulted.
	assert.Equal(t, DefaultExcludePatterns(), repo.ExcludePatterns)
	assert.Equal(t, ImagePipelineStandard, repo.ImagePipeline)
	assert.Equal(t, "turbo", repo.AudioASRModel)
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repositories: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RESEARCHD_MCP_PORT", "7001")
	t.Setenv("RESEARCHD_QDRANT_HOST", "qdrant.internal")
	t.Setenv("RESEARCHD_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.MCPPort)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "researchd"))

	cfg, err := store.Load()
	require.NoError(t, err)

	repo := RepositoryConfig{Name: "papers", Path: "/data/papers"}
	repo.ApplyDefaults()
	cfg.Repositories = append(cfg.Repositories, repo)
	require.NoError(t, store.Save(cfg))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Repositories, 1)
	assert.Equal(t, "papers", loaded.Repositories[0].Name)
	assert.Equal(t, DefaultFileTypes(), loaded.Repositories[0].FileTypes)
}

func TestRepositoryConfigValidate(t *testing.T) {
	assert.ErrorIs(t, RepositoryConfig{Path: "/p"}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, RepositoryConfig{Name: "n"}.Validate(), ErrInvalidConfig)
	assert.NoError(t, RepositoryConfig{Name: "n", Path: "/p"}.Validate())
}
