package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("researchd.vectorstore.chromem")

// ChromemConfig holds configuration for the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the repository data directory. The chromem database lives
	// in a "chromem" subdirectory, the fragment catalog in "catalog.db".
	Path string

	// Collection is the collection name. Default: "documents".
	Collection string

	// Compress enables gzip compression for persisted collections.
	Compress bool
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "documents"
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store on chromem-go, an embeddable pure-Go
// vector database persisting to gob files. A SQLite catalog alongside it
// tracks fragment-to-document membership, since chromem has no way to
// enumerate stored documents.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	catalog    *fragmentCatalog
	embedder   Embedder
	config     ChromemConfig
	logger     *zap.Logger
}

// NewChromemStore creates a ChromemStore rooted at config.Path. A nil
// embedder selects chromem's default embedding function, which calls an
// OpenAI-compatible endpoint configured through the environment.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if err := os.MkdirAll(config.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", config.Path, err)
	}

	db, err := chromem.NewPersistentDB(filepath.Join(config.Path, "chromem"), config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	embedFunc := chromem.NewEmbeddingFuncDefault()
	if embedder != nil {
		embedFunc = func(ctx context.Context, text string) ([]float32, error) {
			return embedder.EmbedQuery(ctx, text)
		}
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", config.Collection, err)
	}

	catalog, err := openFragmentCatalog(filepath.Join(config.Path, "catalog.db"))
	if err != nil {
		return nil, err
	}

	store := &ChromemStore{
		db:         db,
		collection: collection,
		catalog:    catalog,
		embedder:   embedder,
		config:     config,
		logger:     logger,
	}

	logger.Debug("chromem store initialized",
		zap.String("path", config.Path),
		zap.String("collection", config.Collection),
		zap.Bool("compress", config.Compress),
	)

	return store, nil
}

func fragmentMetadata(f Fragment) map[string]string {
	return map[string]string{
		"document_path":  f.DocumentPath,
		"fragment_index": fmt.Sprintf("%d", f.FragmentIndex),
	}
}

// UpsertFragments stores fragments, letting the collection's embedding
// function compute vectors. Re-adding an existing ID replaces it.
func (s *ChromemStore) UpsertFragments(ctx context.Context, fragments []Fragment) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.UpsertFragments")
	defer span.End()

	span.SetAttributes(attribute.Int("fragment_count", len(fragments)))

	if len(fragments) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(fragments))
	for i, f := range fragments {
		docs[i] = chromem.Document{
			ID:       f.ID,
			Content:  f.Text,
			Metadata: fragmentMetadata(f),
		}
	}

	// Catalog first: on a crash between the writes the catalog stays a
	// superset of the collection, so the purge pass still sees the key.
	if err := s.catalog.record(ctx, fragments); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding fragments: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("upserted fragments",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(fragments)),
	)
	return nil
}

// UpsertFragmentsWithVectors stores fragments with precomputed embeddings.
func (s *ChromemStore) UpsertFragmentsWithVectors(ctx context.Context, fragments []Fragment, vectors [][]float32) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.UpsertFragmentsWithVectors")
	defer span.End()

	span.SetAttributes(attribute.Int("fragment_count", len(fragments)))

	if len(fragments) == 0 {
		return nil
	}
	if len(vectors) != len(fragments) {
		return fmt.Errorf("%w: %d vectors for %d fragments", ErrVectorCountMismatch, len(vectors), len(fragments))
	}

	docs := make([]chromem.Document, len(fragments))
	for i, f := range fragments {
		docs[i] = chromem.Document{
			ID:        f.ID,
			Content:   f.Text,
			Metadata:  fragmentMetadata(f),
			Embedding: vectors[i],
		}
	}

	if err := s.catalog.record(ctx, fragments); err != nil {
		span.RecordError(err)
		return err
	}

	// Concurrency of 1 since embeddings are already computed
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding fragments: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Query embeds the query text and returns the k nearest fragments.
func (s *ChromemStore) Query(ctx context.Context, text string, k int) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()

	span.SetAttributes(attribute.Int("k", k))

	if text == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	// chromem requires nResults <= document count
	docCount := s.collection.Count()
	if docCount == 0 {
		return []SearchResult{}, nil
	}
	if k > docCount {
		k = docCount
	}

	results, err := s.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	converted := convertChromemResults(results)
	span.SetAttributes(attribute.Int("results_count", len(converted)))
	span.SetStatus(codes.Ok, "success")
	return converted, nil
}

// QueryVector searches with a precomputed query embedding.
func (s *ChromemStore) QueryVector(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.QueryVector")
	defer span.End()

	span.SetAttributes(attribute.Int("k", k))

	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	docCount := s.collection.Count()
	if docCount == 0 {
		return []SearchResult{}, nil
	}
	if k > docCount {
		k = docCount
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	converted := convertChromemResults(results)
	span.SetAttributes(attribute.Int("results_count", len(converted)))
	span.SetStatus(codes.Ok, "success")
	return converted, nil
}

// convertChromemResults maps chromem similarity (higher is closer) to
// cosine distance (lower is closer).
func convertChromemResults(results []chromem.Result) []SearchResult {
	converted := make([]SearchResult, len(results))
	for i, r := range results {
		sr := SearchResult{
			FragmentID: r.ID,
			Text:       r.Content,
			Distance:   float64(1 - r.Similarity),
		}
		if path, index, err := SplitFragmentID(r.ID); err == nil {
			sr.DocumentPath = path
			sr.FragmentIndex = index
		} else if p, ok := r.Metadata["document_path"]; ok {
			sr.DocumentPath = p
		}
		converted[i] = sr
	}
	return converted
}

// DeleteByDocument removes every fragment of the given document path.
func (s *ChromemStore) DeleteByDocument(ctx context.Context, documentPath string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteByDocument")
	defer span.End()

	span.SetAttributes(attribute.String("document_path", documentPath))

	if s.collection.Count() > 0 {
		where := map[string]string{"document_path": documentPath}
		if err := s.collection.Delete(ctx, where, nil); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("deleting fragments for %s: %w", documentPath, err)
		}
	}

	if err := s.catalog.deleteDocument(ctx, documentPath); err != nil {
		span.RecordError(err)
		return err
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("deleted document fragments",
		zap.String("collection", s.config.Collection),
		zap.String("document_path", documentPath),
	)
	return nil
}

// Count returns the number of stored fragments.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.Count")
	defer span.End()

	return s.collection.Count(), nil
}

// ListDocumentPaths returns the distinct indexed document paths, sorted.
func (s *ChromemStore) ListDocumentPaths(ctx context.Context) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.ListDocumentPaths")
	defer span.End()

	paths, err := s.catalog.documentPaths(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("path_count", len(paths)))
	span.SetStatus(codes.Ok, "success")
	return paths, nil
}

// Close closes the fragment catalog. chromem persists on write and needs
// no explicit close.
func (s *ChromemStore) Close() error {
	return s.catalog.Close()
}

var _ Store = (*ChromemStore)(nil)
