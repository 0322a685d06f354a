// Package searcher runs similarity queries over a repository's fragment
// store and aggregates fragment hits into document-level results.
package searcher

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/embeddings"
	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

// DefaultOversample is the fragment over-fetch factor for document
// search. Fetching n*5 fragments keeps document results diverse when one
// long document dominates the nearest neighbors.
const DefaultOversample = 5

// DocumentResult groups a document's matching fragments. BestDistance is
// the minimum fragment distance in the group.
type DocumentResult struct {
	DocumentPath string
	TopFragments []vectorstore.SearchResult
	BestDistance float64
}

// Service searches one repository.
type Service struct {
	store      vectorstore.Store
	embedder   embeddings.Provider
	oversample int
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithOversample overrides the document-search over-fetch factor.
func WithOversample(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.oversample = n
		}
	}
}

// NewService wires a search service for one repository.
func NewService(store vectorstore.Store, embedder embeddings.Provider, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:      store,
		embedder:   embedder,
		oversample: DefaultOversample,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchFragments returns up to n fragments ordered by ascending
// distance. The native provider queries through the store's own
// embedding path; explicit providers embed the query first.
func (s *Service) SearchFragments(ctx context.Context, query string, n int) ([]vectorstore.SearchResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("result count must be positive, got %d", n)
	}

	if embeddings.IsNative(s.embedder) {
		results, err := s.store.Query(ctx, query, n)
		if err != nil {
			return nil, fmt.Errorf("searching fragments: %w", err)
		}
		return results, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := s.store.QueryVector(ctx, vector, n)
	if err != nil {
		return nil, fmt.Errorf("searching fragments: %w", err)
	}
	return results, nil
}

// SearchDocuments returns up to n documents ranked by their best
// fragment distance. Fragments are over-fetched by the oversample
// factor, grouped by document path, then truncated.
func (s *Service) SearchDocuments(ctx context.Context, query string, n int) ([]DocumentResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("result count must be positive, got %d", n)
	}

	fragments, err := s.SearchFragments(ctx, query, n*s.oversample)
	if err != nil {
		return nil, err
	}

	docs := GroupByDocument(fragments)
	if len(docs) > n {
		docs = docs[:n]
	}

	s.logger.Debug("document search",
		zap.Int("fragments", len(fragments)),
		zap.Int("documents", len(docs)),
	)
	return docs, nil
}

// GroupByDocument groups fragment hits by document path, keeping every
// fragment per group, and sorts groups ascending by best distance.
func GroupByDocument(fragments []vectorstore.SearchResult) []DocumentResult {
	byPath := make(map[string]int)
	var docs []DocumentResult

	for _, f := range fragments {
		i, ok := byPath[f.DocumentPath]
		if !ok {
			byPath[f.DocumentPath] = len(docs)
			docs = append(docs, DocumentResult{
				DocumentPath: f.DocumentPath,
				TopFragments: []vectorstore.SearchResult{f},
				BestDistance: f.Distance,
			})
			continue
		}
		docs[i].TopFragments = append(docs[i].TopFragments, f)
		if f.Distance < docs[i].BestDistance {
			docs[i].BestDistance = f.Distance
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].BestDistance < docs[j].BestDistance
	})
	return docs
}

// MergeFragments flattens per-repository fragment results, re-sorts
// globally by distance, and truncates to n. Used one layer above the
// per-repository services.
func MergeFragments(groups [][]vectorstore.SearchResult, n int) []vectorstore.SearchResult {
	var merged []vectorstore.SearchResult
	for _, g := range groups {
		merged = append(merged, g...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})
	if len(merged) > n {
		merged = merged[:n]
	}
	return merged
}

// MergeDocuments merges per-repository document results the same way.
func MergeDocuments(groups [][]DocumentResult, n int) []DocumentResult {
	var merged []DocumentResult
	for _, g := range groups {
		merged = append(merged, g...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].BestDistance < merged[j].BestDistance
	})
	if len(merged) > n {
		merged = merged[:n]
	}
	return merged
}
