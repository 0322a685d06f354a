package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/researchd/internal/config"
	"github.com/fyrsmithlabs/researchd/internal/searcher"
	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

var (
	searchRepo      string
	searchDocuments bool
	searchNResults  int
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchRepo, "repo", "", "restrict the search to one repository")
	searchCmd.Flags().BoolVar(&searchDocuments, "documents", false, "return whole documents instead of fragments")
	searchCmd.Flags().IntVarP(&searchNResults, "num-results", "n", 0, "number of results (default 10 fragments, 5 documents)")
}

// searchCmd runs a semantic query over one or all repositories.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed repositories",
	Long: `Run a natural-language query against the semantic index. Results are
ranked by cosine distance, lower is closer.

Examples:
  # Fragment search across all repositories
  researchd search "error handling strategy"

  # Document-level results from one repository
  researchd search "quarterly revenue" --repo reports --documents -n 3`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query must not be empty")
	}

	env, err := newRuntime()
	if err != nil {
		return err
	}

	var repos []config.RepositoryConfig
	if searchRepo != "" {
		repo, err := env.factory.Registry().Get(searchRepo)
		if err != nil {
			return err
		}
		repos = []config.RepositoryConfig{repo}
	} else {
		repos, err = env.factory.Registry().List()
		if err != nil {
			return err
		}
	}
	if len(repos) == 0 {
		cmd.Println("No repositories registered.")
		return nil
	}

	if searchDocuments {
		return searchByDocument(cmd.Context(), cmd, env, repos, query)
	}
	return searchByFragment(cmd.Context(), cmd, env, repos, query)
}

func searchByFragment(ctx context.Context, cmd *cobra.Command, env *runtimeEnv, repos []config.RepositoryConfig, query string) error {
	n := searchNResults
	if n <= 0 {
		n = 10
	}

	var groups [][]vectorstore.SearchResult
	for _, repo := range repos {
		svcs, err := env.factory.ForRepositoryConfig(repo)
		if err != nil {
			return fmt.Errorf("%s: %w", repo.Name, err)
		}
		results, err := svcs.Searcher.SearchFragments(ctx, query, n)
		closeErr := svcs.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", repo.Name, err)
		}
		if closeErr != nil {
			return fmt.Errorf("%s: %w", repo.Name, closeErr)
		}
		groups = append(groups, results)
	}

	merged := searcher.MergeFragments(groups, n)
	if len(merged) == 0 {
		cmd.Println("No results.")
		return nil
	}

	rows := make([][]string, 0, len(merged))
	for _, r := range merged {
		rows = append(rows, []string{
			formatDistance(r.Distance),
			truncate(r.DocumentPath, 48),
			truncate(strings.ReplaceAll(r.Text, "\n", " "), 72),
		})
	}
	cmd.Println(renderTable([]string{"DISTANCE", "DOCUMENT", "FRAGMENT"}, rows))
	return nil
}

func searchByDocument(ctx context.Context, cmd *cobra.Command, env *runtimeEnv, repos []config.RepositoryConfig, query string) error {
	n := searchNResults
	if n <= 0 {
		n = 5
	}

	var groups [][]searcher.DocumentResult
	for _, repo := range repos {
		svcs, err := env.factory.ForRepositoryConfig(repo)
		if err != nil {
			return fmt.Errorf("%s: %w", repo.Name, err)
		}
		results, err := svcs.Searcher.SearchDocuments(ctx, query, n)
		closeErr := svcs.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", repo.Name, err)
		}
		if closeErr != nil {
			return fmt.Errorf("%s: %w", repo.Name, closeErr)
		}
		groups = append(groups, results)
	}

	merged := searcher.MergeDocuments(groups, n)
	if len(merged) == 0 {
		cmd.Println("No results.")
		return nil
	}

	rows := make([][]string, 0, len(merged))
	for _, doc := range merged {
		rows = append(rows, []string{
			formatDistance(doc.BestDistance),
			truncate(doc.DocumentPath, 64),
			fmt.Sprintf("%d", len(doc.TopFragments)),
		})
	}
	cmd.Println(renderTable([]string{"DISTANCE", "DOCUMENT", "FRAGMENTS"}, rows))
	return nil
}
