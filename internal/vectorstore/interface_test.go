package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentID(t *testing.T) {
	assert.Equal(t, "docs/guide.md::0", FragmentID("docs/guide.md", 0))
	assert.Equal(t, "notes.txt::12", FragmentID("notes.txt", 12))
}

func TestSplitFragmentID(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		wantPath  string
		wantIndex int
		wantErr   bool
	}{
		{name: "simple", id: "docs/guide.md::3", wantPath: "docs/guide.md", wantIndex: 3},
		{name: "index zero", id: "a.txt::0", wantPath: "a.txt", wantIndex: 0},
		{name: "path containing separator", id: "odd::name.md::7", wantPath: "odd::name.md", wantIndex: 7},
		{name: "no separator", id: "plain.md", wantErr: true},
		{name: "non-numeric index", id: "a.md::x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, index, err := SplitFragmentID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantIndex, index)
		})
	}
}

func TestFragmentIDRoundTrip(t *testing.T) {
	id := FragmentID("deep/nested/dir/file.pdf", 42)
	path, index, err := SplitFragmentID(id)
	require.NoError(t, err)
	assert.Equal(t, "deep/nested/dir/file.pdf", path)
	assert.Equal(t, 42, index)
}
