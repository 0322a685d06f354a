package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

var indexAll bool

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexAll, "all", false, "index every registered repository")
}

// indexCmd builds or refreshes repository indexes.
var indexCmd = &cobra.Command{
	Use:   "index [repository]...",
	Short: "Index one or more repositories",
	Long: `Scan the named repositories and bring their semantic indexes up to
date. Unchanged files are skipped by checksum, changed files are
re-indexed, and documents newly covered by exclude patterns are purged.

Individual file failures do not stop the run; they are reported at the
end and the command exits non-zero.

Examples:
  # Index one repository
  researchd index notes

  # Index several
  researchd index notes papers

  # Index everything registered
  researchd index --all`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !indexAll {
		return fmt.Errorf("name at least one repository or pass --all")
	}
	if len(args) > 0 && indexAll {
		return fmt.Errorf("--all cannot be combined with repository names")
	}

	env, err := newRuntime()
	if err != nil {
		return err
	}

	var repos []config.RepositoryConfig
	if indexAll {
		repos, err = env.factory.Registry().List()
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			cmd.Println("No repositories registered.")
			return nil
		}
	} else {
		for _, name := range args {
			repo, err := env.factory.Registry().Get(name)
			if err != nil {
				return err
			}
			repos = append(repos, repo)
		}
	}

	failedFiles := 0
	for _, repo := range repos {
		if err := indexOne(cmd, env, repo, &failedFiles); err != nil {
			return fmt.Errorf("%s: %w", repo.Name, err)
		}
	}

	if failedFiles > 0 {
		return fmt.Errorf("%d file(s) failed to index", failedFiles)
	}
	return nil
}

func indexOne(cmd *cobra.Command, env *runtimeEnv, repo config.RepositoryConfig, failedFiles *int) error {
	svcs, err := env.factory.ForRepositoryConfig(repo)
	if err != nil {
		return err
	}
	defer svcs.Close()

	cmd.Printf("Indexing %s (%s)\n", titleStyle.Render(repo.Name), dimStyle.Render(repo.Path))
	result, err := svcs.Indexer.IndexRepository(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("  %s %d indexed, %d skipped, %d purged, %d fragments\n",
		okStyle.Render("✓"),
		result.Indexed, result.Skipped, result.Purged, result.FragmentsCreated)

	if result.Failed > 0 {
		cmd.Printf("  %s %d file(s) failed:\n", failStyle.Render("✗"), result.Failed)
		for _, line := range result.Errors {
			cmd.Printf("    %s\n", line)
		}
		*failedFiles += result.Failed
	}
	return nil
}
