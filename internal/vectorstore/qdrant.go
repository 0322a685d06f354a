package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

var qdrantTracer = otel.Tracer("researchd.vectorstore.qdrant")

// fragmentNamespace is the UUIDv5 namespace for deriving Qdrant point IDs
// from fragment IDs. Qdrant only accepts UUID or integer point IDs, so the
// textual fragment ID is hashed deterministically and kept in the payload.
var fragmentNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

const qdrantScrollPageSize = 500

// QdrantConfig holds configuration for the Qdrant gRPC backend.
type QdrantConfig struct {
	// Host is the Qdrant server host. Default: "localhost".
	Host string

	// Port is the gRPC port. Default: 6334.
	Port int

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Collection is the collection name. Default: "documents".
	Collection string

	// MaxMessageSize is the gRPC message size limit in bytes.
	// Default: 32 MiB.
	MaxMessageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "documents"
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 32 * 1024 * 1024
	}
}

// Validate validates the configuration.
func (c *QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be in 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	return nil
}

// QdrantStore implements Store against a Qdrant server over gRPC. Unlike
// the embedded backend it always needs an explicit embedder, since Qdrant
// stores vectors without computing them.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger
}

// NewQdrantStore connects to Qdrant and verifies the connection with a
// health check.
func NewQdrantStore(config QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: qdrant backend requires an embedder", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}

	logger.Debug("qdrant store initialized",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("collection", config.Collection),
	)

	return &QdrantStore{
		client:   client,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}, nil
}

// pointID derives the deterministic Qdrant point ID for a fragment ID.
func pointID(fragmentID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(fragmentNamespace, []byte(fragmentID)).String())
}

// ensureCollection creates the collection on first use. vectorSize comes
// from the first stored vector.
func (s *QdrantStore) ensureCollection(ctx context.Context, vectorSize int) error {
	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.config.Collection, err)
	}

	s.logger.Info("created qdrant collection",
		zap.String("collection", s.config.Collection),
		zap.Int("vector_size", vectorSize),
	)
	return nil
}

// UpsertFragments embeds fragment texts and stores them.
func (s *QdrantStore) UpsertFragments(ctx context.Context, fragments []Fragment) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.UpsertFragments")
	defer span.End()

	span.SetAttributes(attribute.Int("fragment_count", len(fragments)))

	if len(fragments) == 0 {
		return nil
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	return s.upsert(ctx, span, fragments, vectors)
}

// UpsertFragmentsWithVectors stores fragments with precomputed embeddings.
func (s *QdrantStore) UpsertFragmentsWithVectors(ctx context.Context, fragments []Fragment, vectors [][]float32) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.UpsertFragmentsWithVectors")
	defer span.End()

	span.SetAttributes(attribute.Int("fragment_count", len(fragments)))

	if len(fragments) == 0 {
		return nil
	}
	if len(vectors) != len(fragments) {
		return fmt.Errorf("%w: %d vectors for %d fragments", ErrVectorCountMismatch, len(vectors), len(fragments))
	}

	return s.upsert(ctx, span, fragments, vectors)
}

func (s *QdrantStore) upsert(ctx context.Context, span trace.Span, fragments []Fragment, vectors [][]float32) error {
	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		span.RecordError(err)
		return err
	}

	points := make([]*qdrant.PointStruct, len(fragments))
	for i, f := range fragments {
		points[i] = &qdrant.PointStruct{
			Id:      pointID(f.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"id":             f.ID,
				"text":           f.Text,
				"document_path":  f.DocumentPath,
				"fragment_index": int64(f.FragmentIndex),
			}),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.Collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting points: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("upserted fragments",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(fragments)),
	)
	return nil
}

// Query embeds the query text and returns the k nearest fragments.
func (s *QdrantStore) Query(ctx context.Context, text string, k int) ([]SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Query")
	defer span.End()

	if text == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	return s.QueryVector(ctx, vector, k)
}

// QueryVector searches with a precomputed query embedding.
func (s *QdrantStore) QueryVector(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.QueryVector")
	defer span.End()

	span.SetAttributes(attribute.Int("k", k))

	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if !exists {
		return []SearchResult{}, nil
	}

	scored, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	results := make([]SearchResult, len(scored))
	for i, point := range scored {
		payload := point.GetPayload()
		sr := SearchResult{
			FragmentID: payload["id"].GetStringValue(),
			Text:       payload["text"].GetStringValue(),
			// Cosine score is a similarity, convert to distance
			Distance:      float64(1 - point.GetScore()),
			DocumentPath:  payload["document_path"].GetStringValue(),
			FragmentIndex: int(payload["fragment_index"].GetIntegerValue()),
		}
		results[i] = sr
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// DeleteByDocument removes every fragment of the given document path.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, documentPath string) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.DeleteByDocument")
	defer span.End()

	span.SetAttributes(attribute.String("document_path", documentPath))

	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if !exists {
		return nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.config.Collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_path", documentPath),
			},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting fragments for %s: %w", documentPath, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Count returns the number of stored fragments.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Count")
	defer span.End()

	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if !exists {
		return 0, nil
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.config.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("counting points: %w", err)
	}

	return int(count), nil
}

// ListDocumentPaths scrolls the whole collection in pages and returns the
// distinct document paths, sorted.
func (s *QdrantStore) ListDocumentPaths(ctx context.Context) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.ListDocumentPaths")
	defer span.End()

	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if !exists {
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	var offset *qdrant.PointId
	for {
		points, nextOffset, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: s.config.Collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(qdrantScrollPageSize)),
			WithPayload:    qdrant.NewWithPayloadInclude("document_path"),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scrolling collection %s: %w", s.config.Collection, err)
		}

		for _, point := range points {
			if p := point.GetPayload()["document_path"].GetStringValue(); p != "" {
				seen[p] = struct{}{}
			}
		}

		if nextOffset == nil || len(points) == 0 {
			break
		}
		offset = nextOffset
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	span.SetAttributes(attribute.Int("path_count", len(paths)))
	span.SetStatus(codes.Ok, "success")
	return paths, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ Store = (*QdrantStore)(nil)
