// Package vectorstore provides fragment storage backends for semantic search.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for vector store operations.
var (
	ErrInvalidConfig       = errors.New("invalid vector store config")
	ErrConnectionFailed    = errors.New("vector store connection failed")
	ErrEmbeddingFailed     = errors.New("embedding generation failed")
	ErrEmptyFragments      = errors.New("no fragments to store")
	ErrVectorCountMismatch = errors.New("vector count does not match fragment count")
)

// Embedder generates embeddings for fragment texts and queries.
// The embeddings package provides implementations for remote providers.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Fragment is a chunk of a converted document, addressed by a stable ID
// derived from its document path and position.
type Fragment struct {
	ID            string
	Text          string
	DocumentPath  string
	FragmentIndex int
}

// SearchResult is a single fragment hit. Distance is a cosine distance:
// lower means more similar, 0 is identical.
type SearchResult struct {
	FragmentID    string
	Text          string
	DocumentPath  string
	FragmentIndex int
	Distance      float64
}

// FragmentID builds the canonical fragment identifier for a document path
// and fragment position. The "::" separator is load-bearing: removal and
// re-indexing address fragments by the document-path prefix.
func FragmentID(documentPath string, index int) string {
	return fmt.Sprintf("%s::%d", documentPath, index)
}

// SplitFragmentID splits a fragment identifier into its document path and
// fragment index. It splits on the last "::" so document paths containing
// "::" are handled.
func SplitFragmentID(id string) (documentPath string, index int, err error) {
	sep := strings.LastIndex(id, "::")
	if sep < 0 {
		return "", 0, fmt.Errorf("malformed fragment id %q", id)
	}
	index, err = strconv.Atoi(id[sep+2:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed fragment id %q: %w", id, err)
	}
	return id[:sep], index, nil
}

// Store is the per-repository fragment collection. Implementations must
// treat UpsertFragments as idempotent: re-adding an existing fragment ID
// replaces it rather than failing, so an index run that crashed between
// the vector write and the checksum save can simply be repeated.
type Store interface {
	// UpsertFragments stores fragments, embedding their texts via the
	// backend's own embedding path.
	UpsertFragments(ctx context.Context, fragments []Fragment) error

	// UpsertFragmentsWithVectors stores fragments with precomputed
	// embeddings, one vector per fragment.
	UpsertFragmentsWithVectors(ctx context.Context, fragments []Fragment, vectors [][]float32) error

	// Query embeds the query text with the backend's embedding path and
	// returns up to k fragments ordered by ascending distance. k is
	// clamped to the collection size; an empty collection yields an
	// empty slice.
	Query(ctx context.Context, text string, k int) ([]SearchResult, error)

	// QueryVector searches with a precomputed query embedding.
	QueryVector(ctx context.Context, vector []float32, k int) ([]SearchResult, error)

	// DeleteByDocument removes every fragment belonging to the document
	// path. Deleting a document with no fragments is not an error.
	DeleteByDocument(ctx context.Context, documentPath string) error

	// Count returns the number of stored fragments.
	Count(ctx context.Context) (int, error)

	// ListDocumentPaths returns the distinct document paths that have at
	// least one stored fragment, sorted ascending. This is the
	// authoritative key set used by the exclusion purge pass.
	ListDocumentPaths(ctx context.Context) ([]string, error)

	Close() error
}
