package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

// mapEmbedder maps known texts to fixed unit vectors. Satisfies both
// embeddings.Provider and vectorstore.Embedder.
type mapEmbedder map[string][]float32

func (m mapEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if v, ok := m[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (m mapEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (mapEmbedder) Name() string { return "fake" }
func (mapEmbedder) Close() error { return nil }

func frag(path string, index int, distance float64) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		FragmentID:    vectorstore.FragmentID(path, index),
		DocumentPath:  path,
		FragmentIndex: index,
		Distance:      distance,
	}
}

func TestGroupByDocumentRanking(t *testing.T) {
	// doc-b fragment at 0.5, doc-a fragment at 0.1
	docs := GroupByDocument([]vectorstore.SearchResult{
		frag("doc-a", 0, 0.1),
		frag("doc-b", 0, 0.5),
	})

	require.Len(t, docs, 2)
	assert.Equal(t, "doc-a", docs[0].DocumentPath)
	assert.InDelta(t, 0.1, docs[0].BestDistance, 1e-9)
	assert.Equal(t, "doc-b", docs[1].DocumentPath)
	assert.InDelta(t, 0.5, docs[1].BestDistance, 1e-9)
}

func TestGroupByDocumentKeepsAllFragments(t *testing.T) {
	docs := GroupByDocument([]vectorstore.SearchResult{
		frag("doc-a", 1, 0.4),
		frag("doc-b", 0, 0.3),
		frag("doc-a", 0, 0.2),
	})

	require.Len(t, docs, 2)
	assert.Equal(t, "doc-a", docs[0].DocumentPath)
	assert.Len(t, docs[0].TopFragments, 2)
	assert.InDelta(t, 0.2, docs[0].BestDistance, 1e-9)

	assert.Equal(t, "doc-b", docs[1].DocumentPath)
	assert.Len(t, docs[1].TopFragments, 1)
}

func TestGroupByDocumentEmpty(t *testing.T) {
	assert.Empty(t, GroupByDocument(nil))
}

func TestMergeFragments(t *testing.T) {
	merged := MergeFragments([][]vectorstore.SearchResult{
		{frag("r1/a", 0, 0.6), frag("r1/b", 0, 0.2)},
		{frag("r2/c", 0, 0.4)},
	}, 2)

	require.Len(t, merged, 2)
	assert.Equal(t, "r1/b", merged[0].DocumentPath)
	assert.Equal(t, "r2/c", merged[1].DocumentPath)
}

func TestMergeDocuments(t *testing.T) {
	merged := MergeDocuments([][]DocumentResult{
		{{DocumentPath: "r1/a", BestDistance: 0.7}},
		{{DocumentPath: "r2/b", BestDistance: 0.1}, {DocumentPath: "r2/c", BestDistance: 0.9}},
	}, 2)

	require.Len(t, merged, 2)
	assert.Equal(t, "r2/b", merged[0].DocumentPath)
	assert.Equal(t, "r1/a", merged[1].DocumentPath)
}

func newSearchStore(t *testing.T, embedder mapEmbedder) vectorstore.Store {
	t.Helper()
	store, err := vectorstore.NewChromemStore(
		vectorstore.ChromemConfig{Path: t.TempDir()}, embedder, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSearchFragmentsEndToEnd(t *testing.T) {
	embedder := mapEmbedder{"the query": {1, 0, 0}}
	store := newSearchStore(t, embedder)
	ctx := context.Background()

	require.NoError(t, store.UpsertFragmentsWithVectors(ctx,
		[]vectorstore.Fragment{
			{ID: "doc-a::0", Text: "close", DocumentPath: "doc-a", FragmentIndex: 0},
			{ID: "doc-b::0", Text: "far", DocumentPath: "doc-b", FragmentIndex: 0},
		},
		[][]float32{
			{0.9, 0.43589, 0},
			{0.5, 0.86603, 0},
		}))

	svc := NewService(store, embedder, zap.NewNop())
	results, err := svc.SearchFragments(ctx, "the query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-a", results[0].DocumentPath)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestSearchDocumentsOversamplesAndTruncates(t *testing.T) {
	embedder := mapEmbedder{"q": {1, 0, 0}}
	store := newSearchStore(t, embedder)
	ctx := context.Background()

	// Three fragments in doc-a closer than the single doc-b fragment:
	// without oversampling, n=2 fragments would surface only doc-a
	require.NoError(t, store.UpsertFragmentsWithVectors(ctx,
		[]vectorstore.Fragment{
			{ID: "doc-a::0", Text: "a0", DocumentPath: "doc-a", FragmentIndex: 0},
			{ID: "doc-a::1", Text: "a1", DocumentPath: "doc-a", FragmentIndex: 1},
			{ID: "doc-a::2", Text: "a2", DocumentPath: "doc-a", FragmentIndex: 2},
			{ID: "doc-b::0", Text: "b0", DocumentPath: "doc-b", FragmentIndex: 0},
		},
		[][]float32{
			{1, 0, 0},
			{0.99, 0.14107, 0},
			{0.98, 0.19900, 0},
			{0.7, 0.71414, 0},
		}))

	svc := NewService(store, embedder, zap.NewNop())
	docs, err := svc.SearchDocuments(ctx, "q", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-a", docs[0].DocumentPath)
	assert.Len(t, docs[0].TopFragments, 3)
	assert.Equal(t, "doc-b", docs[1].DocumentPath)
}

func TestSearchEmptyCollection(t *testing.T) {
	embedder := mapEmbedder{}
	store := newSearchStore(t, embedder)

	svc := NewService(store, embedder, zap.NewNop())
	results, err := svc.SearchFragments(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	docs, err := svc.SearchDocuments(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearchRejectsNonPositiveN(t *testing.T) {
	embedder := mapEmbedder{}
	store := newSearchStore(t, embedder)
	svc := NewService(store, embedder, zap.NewNop())

	_, err := svc.SearchFragments(context.Background(), "q", 0)
	require.Error(t, err)
	_, err = svc.SearchDocuments(context.Background(), "q", -1)
	require.Error(t, err)
}

func TestWithOversample(t *testing.T) {
	embedder := mapEmbedder{}
	store := newSearchStore(t, embedder)

	svc := NewService(store, embedder, zap.NewNop(), WithOversample(10))
	assert.Equal(t, 10, svc.oversample)

	// Non-positive values keep the default
	svc = NewService(store, embedder, zap.NewNop(), WithOversample(0))
	assert.Equal(t, DefaultOversample, svc.oversample)
}
