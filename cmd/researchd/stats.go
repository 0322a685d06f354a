package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

// statsCmd reports index state per repository.
var statsCmd = &cobra.Command{
	Use:   "stats [repository]",
	Short: "Show index statistics",
	Long: `Show document and fragment counts plus the last index time for one
repository or all of them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	env, err := newRuntime()
	if err != nil {
		return err
	}

	var repos []config.RepositoryConfig
	if len(args) == 1 {
		repo, err := env.factory.Registry().Get(args[0])
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

	rows := make([][]string, 0, len(repos))
	for _, repo := range repos {
		svcs, err := env.factory.ForRepositoryConfig(repo)
		if err != nil {
			return fmt.Errorf("%s: %w", repo.Name, err)
		}
		stats, err := svcs.Indexer.Stats(cmd.Context())
		closeErr := svcs.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", repo.Name, err)
		}
		if closeErr != nil {
			return fmt.Errorf("%s: %w", repo.Name, closeErr)
		}

		lastIndexed := "never"
		if stats.HasLastIndexed {
			lastIndexed = stats.LastIndexed.Local().Format(time.RFC1123)
		}
		rows = append(rows, []string{
			repo.Name,
			fmt.Sprintf("%d", stats.TotalDocuments),
			fmt.Sprintf("%d", stats.TotalFragments),
			lastIndexed,
		})
	}

	cmd.Println(renderTable([]string{"REPOSITORY", "DOCUMENTS", "FRAGMENTS", "LAST INDEXED"}, rows))
	return nil
}
