package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAbsentReturnsEmptyMap(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "checksums.json"))

	checksums, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, checksums)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "data", "checksums.json"))

	want := map[string]string{
		"/repo/a.md": "abc123",
		"/repo/b.md": "def456",
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeply", "checksums.json")
	store := NewStore(path)

	require.NoError(t, store.Save(map[string]string{"/r/a.md": "x"}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checksums.json")
	require.NoError(t, os.WriteFile(path, []byte("not json{"), 0o600))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestLastModified(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "checksums.json"))

	_, ok, err := store.LastModified()
	require.NoError(t, err)
	assert.False(t, ok, "unsaved store has no timestamp")

	require.NoError(t, store.Save(map[string]string{}))

	mtime, ok, err := store.LastModified()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mtime.IsZero())
}

func TestSaveOverwrites(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "checksums.json"))

	require.NoError(t, store.Save(map[string]string{"/r/a.md": "old", "/r/b.md": "keep"}))
	require.NoError(t, store.Save(map[string]string{"/r/b.md": "keep"}))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"/r/b.md": "keep"}, got)
}
