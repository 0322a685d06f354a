// Package indexer orchestrates repository indexing: exclusion purge,
// file discovery, checksum-gated conversion, and fragment storage.
package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/config"
	"github.com/fyrsmithlabs/researchd/internal/convert"
	"github.com/fyrsmithlabs/researchd/internal/embeddings"
	"github.com/fyrsmithlabs/researchd/internal/exclusion"
	"github.com/fyrsmithlabs/researchd/internal/fingerprint"
	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

// Service indexes one repository into its fragment store.
type Service struct {
	repo         config.RepositoryConfig
	store        vectorstore.Store
	embedder     embeddings.Provider
	converter    *convert.Service
	fingerprints *fingerprint.Store
	lister       *Lister
	logger       *zap.Logger
}

// NewService wires an indexing service for one repository. embedder is
// the repository's resolved provider; the native provider routes storage
// writes through the store's own embedding path.
func NewService(
	repo config.RepositoryConfig,
	store vectorstore.Store,
	embedder embeddings.Provider,
	converter *convert.Service,
	fingerprints *fingerprint.Store,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:         repo,
		store:        store,
		embedder:     embedder,
		converter:    converter,
		fingerprints: fingerprints,
		lister:       NewLister(repo.Path, repo.FileTypes, repo.ExcludePatterns),
		logger:       logger,
	}
}

// IndexRepository runs a full index pass: purge newly-excluded
// documents, discover files, reindex the changed ones, and save the
// fingerprint map once at the end. Per-file failures are recorded in the
// result and never abort the run; purge and fingerprint-save errors do.
func (s *Service) IndexRepository(ctx context.Context) (*Result, error) {
	fingerprints, err := s.fingerprints.Load()
	if err != nil {
		return nil, fmt.Errorf("loading fingerprints: %w", err)
	}

	result := &Result{}

	purged, err := s.purge(ctx, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("purging excluded documents: %w", err)
	}
	result.Purged = purged

	files, err := s.lister.List()
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	for _, path := range files {
		if err := s.processFile(ctx, path, fingerprints, result); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", path, err.Error()))
			s.logger.Warn("file indexing failed",
				zap.String("repository", s.repo.Name),
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}

	if err := s.fingerprints.Save(fingerprints); err != nil {
		return nil, fmt.Errorf("saving fingerprints: %w", err)
	}

	s.logger.Info("index run complete",
		zap.String("repository", s.repo.Name),
		zap.Int("indexed", result.Indexed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("purged", result.Purged),
		zap.Int("fragments", result.FragmentsCreated),
	)
	return result, nil
}

// processFile runs the per-file decide/convert/store sequence, mutating
// fingerprints and result counters on success.
func (s *Service) processFile(ctx context.Context, path string, fingerprints map[string]string, result *Result) error {
	sum, err := s.lister.Checksum(path)
	if err != nil {
		return err
	}

	if fingerprints[path] == sum {
		result.Skipped++
		return nil
	}

	// Changed content: drop the old fragments first so stale fragment
	// indices never coexist with the new split
	if _, known := fingerprints[path]; known {
		if err := s.store.DeleteByDocument(ctx, path); err != nil {
			return err
		}
	}

	chunked, err := s.IndexFile(ctx, path)
	if err != nil {
		return err
	}

	fingerprints[path] = sum
	result.Indexed++
	result.FragmentsCreated += len(chunked.Fragments)
	return nil
}

// IndexFile converts, chunks, and stores a single file. It does no
// checksum bookkeeping; callers own the fingerprint map. A document that
// chunks to zero fragments is a successful empty index with no storage
// write.
func (s *Service) IndexFile(ctx context.Context, path string) (*convert.ChunkResult, error) {
	doc, err := s.converter.Convert(ctx, path)
	if err != nil {
		return nil, err
	}

	chunked, err := s.converter.Chunk(doc, path)
	if err != nil {
		return nil, err
	}
	if len(chunked.Fragments) == 0 {
		return chunked, nil
	}

	fragments := make([]vectorstore.Fragment, len(chunked.Fragments))
	for i, f := range chunked.Fragments {
		fragments[i] = vectorstore.Fragment{
			ID:            vectorstore.FragmentID(f.DocumentPath, f.FragmentIndex),
			Text:          f.Text,
			DocumentPath:  f.DocumentPath,
			FragmentIndex: f.FragmentIndex,
		}
	}

	if embeddings.IsNative(s.embedder) {
		if err := s.store.UpsertFragments(ctx, fragments); err != nil {
			return nil, err
		}
		return chunked, nil
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertFragmentsWithVectors(ctx, fragments, vectors); err != nil {
		return nil, err
	}
	return chunked, nil
}

// purge removes stored documents whose path now matches an exclude
// pattern, dropping them from the fingerprint map as it goes. With no
// patterns configured it is a no-op and never enumerates the store.
func (s *Service) purge(ctx context.Context, fingerprints map[string]string) (int, error) {
	if len(s.repo.ExcludePatterns) == 0 {
		return 0, nil
	}

	keys, err := s.store.ListDocumentPaths(ctx)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, key := range keys {
		rel, err := filepath.Rel(s.repo.Path, key)
		if err != nil || strings.HasPrefix(rel, "..") {
			// Stale key from a moved root, not ours to judge
			continue
		}
		if !exclusion.Excluded(filepath.ToSlash(rel), s.repo.ExcludePatterns) {
			continue
		}
		if err := s.store.DeleteByDocument(ctx, key); err != nil {
			return purged, err
		}
		delete(fingerprints, key)
		purged++
		s.logger.Debug("purged excluded document",
			zap.String("repository", s.repo.Name),
			zap.String("path", key),
		)
	}
	return purged, nil
}

// PurgeExcluded runs the purge pass on its own, persisting the updated
// fingerprint map. Used after exclusion patterns change.
func (s *Service) PurgeExcluded(ctx context.Context) (int, error) {
	fingerprints, err := s.fingerprints.Load()
	if err != nil {
		return 0, fmt.Errorf("loading fingerprints: %w", err)
	}

	purged, err := s.purge(ctx, fingerprints)
	if err != nil {
		return purged, err
	}

	if err := s.fingerprints.Save(fingerprints); err != nil {
		return purged, fmt.Errorf("saving fingerprints: %w", err)
	}
	return purged, nil
}

// RemoveDocument deletes a document's fragments and fingerprint entry.
// Removing an unknown path is not an error.
func (s *Service) RemoveDocument(ctx context.Context, path string) error {
	if err := s.store.DeleteByDocument(ctx, path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}

	fingerprints, err := s.fingerprints.Load()
	if err != nil {
		return fmt.Errorf("loading fingerprints: %w", err)
	}
	if _, known := fingerprints[path]; !known {
		return nil
	}
	delete(fingerprints, path)
	if err := s.fingerprints.Save(fingerprints); err != nil {
		return fmt.Errorf("saving fingerprints: %w", err)
	}
	return nil
}

// Stats reports the repository's current index state.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	fingerprints, err := s.fingerprints.Load()
	if err != nil {
		return nil, fmt.Errorf("loading fingerprints: %w", err)
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting fragments: %w", err)
	}

	stats := &Stats{
		TotalDocuments: len(fingerprints),
		TotalFragments: count,
	}

	modified, ok, err := s.fingerprints.LastModified()
	if err != nil {
		return nil, fmt.Errorf("reading fingerprint mtime: %w", err)
	}
	stats.LastIndexed = modified
	stats.HasLastIndexed = ok
	return stats, nil
}
