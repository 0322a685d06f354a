package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/config"
	"github.com/fyrsmithlabs/researchd/internal/searcher"
	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

type addToIndexInput struct {
	Repository string `json:"repository" jsonschema:"required,Name of the repository the file belongs to"`
	FilePath   string `json:"file_path" jsonschema:"required,Absolute path of the file to index"`
}

type addToIndexOutput struct {
	FilePath  string `json:"file_path" jsonschema:"The indexed file path"`
	Fragments int    `json:"fragments" jsonschema:"Number of fragments stored"`
}

type removeFromIndexInput struct {
	Repository   string `json:"repository" jsonschema:"required,Name of the repository"`
	DocumentPath string `json:"document_path" jsonschema:"required,Document path to remove from the index"`
}

type removeFromIndexOutput struct {
	DocumentPath string `json:"document_path" jsonschema:"The removed document path"`
	Repository   string `json:"repository" jsonschema:"The repository it was removed from"`
}

type searchFragmentsInput struct {
	Query      string `json:"query" jsonschema:"required,Natural language search query"`
	Repository string `json:"repository,omitempty" jsonschema:"Restrict the search to one repository (default: all)"`
	NResults   int    `json:"n_results,omitempty" jsonschema:"Maximum fragments to return (default: 10)"`
}

type fragmentResult struct {
	FragmentID    string  `json:"fragment_id"`
	Text          string  `json:"text"`
	DocumentPath  string  `json:"document_path"`
	FragmentIndex int     `json:"fragment_index"`
	Distance      float64 `json:"distance"`
}

type searchFragmentsOutput struct {
	Results []fragmentResult `json:"results" jsonschema:"Fragments ordered by ascending distance"`
	Count   int              `json:"count" jsonschema:"Number of fragments returned"`
}

type searchDocumentsInput struct {
	Query      string `json:"query" jsonschema:"required,Natural language search query"`
	Repository string `json:"repository,omitempty" jsonschema:"Restrict the search to one repository (default: all)"`
	NResults   int    `json:"n_results,omitempty" jsonschema:"Maximum documents to return (default: 5)"`
}

type documentResult struct {
	DocumentPath string           `json:"document_path"`
	BestDistance float64          `json:"best_distance"`
	TopFragments []fragmentResult `json:"top_fragments"`
}

type searchDocumentsOutput struct {
	Results []documentResult `json:"results" jsonschema:"Documents ordered by ascending best fragment distance"`
	Count   int              `json:"count" jsonschema:"Number of documents returned"`
}

type listRepositoriesInput struct{}

type repositoryInfo struct {
	Name              string   `json:"name"`
	Path              string   `json:"path"`
	FileTypes         []string `json:"file_types"`
	EmbeddingProvider string   `json:"embedding_provider"`
	EmbeddingModel    string   `json:"embedding_model,omitempty"`
	ExcludePatterns   []string `json:"exclude_patterns"`
	ImagePipeline     string   `json:"image_pipeline"`
	AudioASRModel     string   `json:"audio_asr_model"`
}

type listRepositoriesOutput struct {
	Repositories []repositoryInfo `json:"repositories"`
	Count        int              `json:"count"`
}

type indexStatusInput struct {
	Repository string `json:"repository,omitempty" jsonschema:"Restrict to one repository (default: all)"`
}

type indexStatus struct {
	Repository     string `json:"repository"`
	TotalDocuments int    `json:"total_documents"`
	TotalFragments int    `json:"total_fragments"`
	LastIndexed    string `json:"last_indexed,omitempty"`
}

type indexStatusOutput struct {
	Repositories []indexStatus `json:"repositories"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add_to_index",
		Description: "Index a specific file in a repository.",
	}, s.addToIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "remove_from_index",
		Description: "Remove a document from a repository's index.",
	}, s.removeFromIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_fragments",
		Description: "Search for text fragments across indexed repositories.",
	}, s.searchFragments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search for documents across indexed repositories, returning top fragments per document.",
	}, s.searchDocuments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_repositories",
		Description: "List all configured repositories with their settings.",
	}, s.listRepositories)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get indexing statistics for one or all repositories.",
	}, s.getIndexStatus)
}

func (s *Server) addToIndex(ctx context.Context, _ *mcp.CallToolRequest, args addToIndexInput) (*mcp.CallToolResult, addToIndexOutput, error) {
	svcs, err := s.factory.ForRepository(args.Repository)
	if err != nil {
		return nil, addToIndexOutput{}, err
	}
	defer svcs.Close()

	// Drop any prior fragments first so a re-chunk that produces fewer
	// fragments leaves no stale tail under the old indexes.
	if err := svcs.Indexer.RemoveDocument(ctx, args.FilePath); err != nil {
		return nil, addToIndexOutput{}, err
	}

	chunked, err := svcs.Indexer.IndexFile(ctx, args.FilePath)
	if err != nil {
		return nil, addToIndexOutput{}, err
	}

	s.logger.Info("indexed file via MCP",
		zap.String("repository", args.Repository),
		zap.String("path", args.FilePath),
		zap.Int("fragments", len(chunked.Fragments)),
	)
	return nil, addToIndexOutput{
		FilePath:  args.FilePath,
		Fragments: len(chunked.Fragments),
	}, nil
}

func (s *Server) removeFromIndex(ctx context.Context, _ *mcp.CallToolRequest, args removeFromIndexInput) (*mcp.CallToolResult, removeFromIndexOutput, error) {
	svcs, err := s.factory.ForRepository(args.Repository)
	if err != nil {
		return nil, removeFromIndexOutput{}, err
	}
	defer svcs.Close()

	if err := svcs.Indexer.RemoveDocument(ctx, args.DocumentPath); err != nil {
		return nil, removeFromIndexOutput{}, err
	}
	return nil, removeFromIndexOutput{
		DocumentPath: args.DocumentPath,
		Repository:   args.Repository,
	}, nil
}

// targetRepos resolves the repository argument: one if named, all when
// empty.
func (s *Server) targetRepos(name string) ([]config.RepositoryConfig, error) {
	if name != "" {
		repo, err := s.factory.Registry().Get(name)
		if err != nil {
			return nil, err
		}
		return []config.RepositoryConfig{repo}, nil
	}
	return s.factory.Registry().List()
}

func (s *Server) searchFragments(ctx context.Context, _ *mcp.CallToolRequest, args searchFragmentsInput) (*mcp.CallToolResult, searchFragmentsOutput, error) {
	n := args.NResults
	if n <= 0 {
		n = 10
	}

	repos, err := s.targetRepos(args.Repository)
	if err != nil {
		return nil, searchFragmentsOutput{}, err
	}

	var groups [][]vectorstore.SearchResult
	for _, repo := range repos {
		svcs, err := s.factory.ForRepositoryConfig(repo)
		if err != nil {
			return nil, searchFragmentsOutput{}, err
		}
		results, err := svcs.Searcher.SearchFragments(ctx, args.Query, n)
		closeErr := svcs.Close()
		if err != nil {
			return nil, searchFragmentsOutput{}, fmt.Errorf("searching %s: %w", repo.Name, err)
		}
		if closeErr != nil {
			return nil, searchFragmentsOutput{}, closeErr
		}
		groups = append(groups, results)
	}

	merged := searcher.MergeFragments(groups, n)
	out := searchFragmentsOutput{Results: make([]fragmentResult, len(merged)), Count: len(merged)}
	for i, r := range merged {
		out.Results[i] = toFragmentResult(r)
	}
	return nil, out, nil
}

func (s *Server) searchDocuments(ctx context.Context, _ *mcp.CallToolRequest, args searchDocumentsInput) (*mcp.CallToolResult, searchDocumentsOutput, error) {
	n := args.NResults
	if n <= 0 {
		n = 5
	}

	repos, err := s.targetRepos(args.Repository)
	if err != nil {
		return nil, searchDocumentsOutput{}, err
	}

	var groups [][]searcher.DocumentResult
	for _, repo := range repos {
		svcs, err := s.factory.ForRepositoryConfig(repo)
		if err != nil {
			return nil, searchDocumentsOutput{}, err
		}
		results, err := svcs.Searcher.SearchDocuments(ctx, args.Query, n)
		closeErr := svcs.Close()
		if err != nil {
			return nil, searchDocumentsOutput{}, fmt.Errorf("searching %s: %w", repo.Name, err)
		}
		if closeErr != nil {
			return nil, searchDocumentsOutput{}, closeErr
		}
		groups = append(groups, results)
	}

	merged := searcher.MergeDocuments(groups, n)
	out := searchDocumentsOutput{Results: make([]documentResult, len(merged)), Count: len(merged)}
	for i, d := range merged {
		fragments := make([]fragmentResult, len(d.TopFragments))
		for j, f := range d.TopFragments {
			fragments[j] = toFragmentResult(f)
		}
		out.Results[i] = documentResult{
			DocumentPath: d.DocumentPath,
			BestDistance: d.BestDistance,
			TopFragments: fragments,
		}
	}
	return nil, out, nil
}

func (s *Server) listRepositories(_ context.Context, _ *mcp.CallToolRequest, _ listRepositoriesInput) (*mcp.CallToolResult, listRepositoriesOutput, error) {
	repos, err := s.factory.Registry().List()
	if err != nil {
		return nil, listRepositoriesOutput{}, err
	}

	out := listRepositoriesOutput{Repositories: make([]repositoryInfo, len(repos)), Count: len(repos)}
	for i, repo := range repos {
		out.Repositories[i] = repositoryInfo{
			Name:              repo.Name,
			Path:              repo.Path,
			FileTypes:         repo.FileTypes,
			EmbeddingProvider: repo.EmbeddingProvider,
			EmbeddingModel:    repo.EmbeddingModel,
			ExcludePatterns:   repo.ExcludePatterns,
			ImagePipeline:     repo.ImagePipeline,
			AudioASRModel:     repo.AudioASRModel,
		}
	}
	return nil, out, nil
}

func (s *Server) getIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, args indexStatusInput) (*mcp.CallToolResult, indexStatusOutput, error) {
	repos, err := s.targetRepos(args.Repository)
	if err != nil {
		return nil, indexStatusOutput{}, err
	}

	out := indexStatusOutput{Repositories: make([]indexStatus, 0, len(repos))}
	for _, repo := range repos {
		svcs, err := s.factory.ForRepositoryConfig(repo)
		if err != nil {
			return nil, indexStatusOutput{}, err
		}
		stats, err := svcs.Indexer.Stats(ctx)
		closeErr := svcs.Close()
		if err != nil {
			return nil, indexStatusOutput{}, fmt.Errorf("stats for %s: %w", repo.Name, err)
		}
		if closeErr != nil {
			return nil, indexStatusOutput{}, closeErr
		}

		status := indexStatus{
			Repository:     repo.Name,
			TotalDocuments: stats.TotalDocuments,
			TotalFragments: stats.TotalFragments,
		}
		if stats.HasLastIndexed {
			status.LastIndexed = stats.LastIndexed.Format(time.RFC3339)
		}
		out.Repositories = append(out.Repositories, status)
	}
	return nil, out, nil
}

func toFragmentResult(r vectorstore.SearchResult) fragmentResult {
	return fragmentResult{
		FragmentID:    r.FragmentID,
		Text:          r.Text,
		DocumentPath:  r.DocumentPath,
		FragmentIndex: r.FragmentIndex,
		Distance:      r.Distance,
	}
}
