package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(config.NewStore(t.TempDir()), zap.NewNop())
}

func TestAddAppliesDefaults(t *testing.T) {
	r := newTestRegistry(t)

	repo, err := r.Add(AddOptions{Name: "docs", Path: "/srv/docs"})
	require.NoError(t, err)
	assert.Equal(t, "docs", repo.Name)
	assert.Equal(t, []string{"md", "txt", "pdf", "docx", "html"}, repo.FileTypes)
	assert.Equal(t, config.ProviderNative, repo.EmbeddingProvider)
	assert.Equal(t, []string{".*"}, repo.ExcludePatterns)
	assert.Equal(t, config.ImagePipelineStandard, repo.ImagePipeline)
	assert.Equal(t, "turbo", repo.AudioASRModel)

	// Persisted
	got, err := r.Get("docs")
	require.NoError(t, err)
	assert.Equal(t, repo, got)
}

func TestAddDuplicateName(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Add(AddOptions{Name: "docs", Path: "/srv/docs"})
	require.NoError(t, err)

	_, err = r.Add(AddOptions{Name: "docs", Path: "/elsewhere"})
	require.ErrorIs(t, err, ErrRepositoryExists)
}

func TestNameIsCaseSensitive(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Add(AddOptions{Name: "docs", Path: "/srv/docs"})
	require.NoError(t, err)
	_, err = r.Add(AddOptions{Name: "Docs", Path: "/srv/docs2"})
	require.NoError(t, err)

	_, err = r.Get("Docs")
	require.NoError(t, err)
}

func TestRemove(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Add(AddOptions{Name: "docs", Path: "/srv/docs"})
	require.NoError(t, err)

	require.NoError(t, r.Remove("docs"))
	_, err = r.Get("docs")
	require.ErrorIs(t, err, ErrRepositoryNotFound)

	require.ErrorIs(t, r.Remove("docs"), ErrRepositoryNotFound)
}

func TestGetNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get("missing")
	require.ErrorIs(t, err, ErrRepositoryNotFound)
}

func TestListEmptyAndPopulated(t *testing.T) {
	r := newTestRegistry(t)

	repos, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, repos)

	_, err = r.Add(AddOptions{Name: "a", Path: "/a"})
	require.NoError(t, err)
	_, err = r.Add(AddOptions{Name: "b", Path: "/b"})
	require.NoError(t, err)

	repos, err = r.List()
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "a", repos[0].Name)
	assert.Equal(t, "b", repos[1].Name)
}

func TestUpdateNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, _, err := r.Update("missing", UpdateOptions{})
	require.ErrorIs(t, err, ErrRepositoryNotFound)
}

func TestUpdateUnsetFieldsUnchanged(t *testing.T) {
	r := newTestRegistry(t)

	original, err := r.Add(AddOptions{
		Name:              "docs",
		Path:              "/srv/docs",
		EmbeddingProvider: "ollama",
		EmbeddingModel:    "nomic-embed-text",
	})
	require.NoError(t, err)

	newPath := "/mnt/docs"
	updated, added, err := r.Update("docs", UpdateOptions{Path: &newPath})
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, "/mnt/docs", updated.Path)
	assert.Equal(t, original.EmbeddingProvider, updated.EmbeddingProvider)
	assert.Equal(t, original.EmbeddingModel, updated.EmbeddingModel)
	assert.Equal(t, original.FileTypes, updated.FileTypes)
	assert.Equal(t, original.ExcludePatterns, updated.ExcludePatterns)
}

func TestUpdatePatternMerge(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Add(AddOptions{
		Name:            "docs",
		Path:            "/srv/docs",
		ExcludePatterns: []string{"node_modules"},
	})
	require.NoError(t, err)

	updated, added, err := r.Update("docs", UpdateOptions{
		ExcludePatterns: []string{"dist", "node_modules"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"node_modules", "dist"}, updated.ExcludePatterns)
	assert.Equal(t, []string{"dist"}, added)

	// Re-applying the same patterns adds nothing
	updated, added, err = r.Update("docs", UpdateOptions{
		ExcludePatterns: []string{"dist", "node_modules"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"node_modules", "dist"}, updated.ExcludePatterns)
	assert.Empty(t, added)
}

func TestMergePatternsDedupesIncoming(t *testing.T) {
	merged, added := mergePatterns([]string{"a"}, []string{"b", "b", "a", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, merged)
	assert.Equal(t, []string{"b", "c"}, added)
}
