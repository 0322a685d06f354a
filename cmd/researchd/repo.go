// Package main implements repository management commands.
package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/researchd/internal/registry"
)

var (
	repoAddFileTypes     []string
	repoAddProvider      string
	repoAddModel         string
	repoAddExclude       []string
	repoAddImagePipeline string
	repoAddVLMModel      string
	repoAddASRModel      string
	repoUpdatePath       string
	repoUpdateFileTypes  []string
	repoUpdateProvider   string
	repoUpdateModel      string
	repoUpdateExclude    []string
	repoUpdateImagePipe  string
	repoUpdateVLMModel   string
	repoUpdateASRModel   string
	repoUpdateSkipPurge  bool
)

func init() {
	rootCmd.AddCommand(repoCmd)
	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoShowCmd)
	repoCmd.AddCommand(repoUpdateCmd)

	repoAddCmd.Flags().StringSliceVar(&repoAddFileTypes, "file-types", nil, "file extensions to index (default md,txt,pdf,docx,html)")
	repoAddCmd.Flags().StringVar(&repoAddProvider, "embedding-provider", "", "embedding provider: native, ollama, openai")
	repoAddCmd.Flags().StringVar(&repoAddModel, "embedding-model", "", "embedding model override")
	repoAddCmd.Flags().StringSliceVar(&repoAddExclude, "exclude", nil, "exclude patterns matched per path segment (default .*)")
	repoAddCmd.Flags().StringVar(&repoAddImagePipeline, "image-pipeline", "", "image handling: standard or vlm")
	repoAddCmd.Flags().StringVar(&repoAddVLMModel, "vlm-model", "", "VLM model preset for image description")
	repoAddCmd.Flags().StringVar(&repoAddASRModel, "asr-model", "", "ASR model for audio transcription (default turbo)")

	repoUpdateCmd.Flags().StringVar(&repoUpdatePath, "path", "", "new repository root")
	repoUpdateCmd.Flags().StringSliceVar(&repoUpdateFileTypes, "file-types", nil, "replace the file extension set")
	repoUpdateCmd.Flags().StringVar(&repoUpdateProvider, "embedding-provider", "", "new embedding provider")
	repoUpdateCmd.Flags().StringVar(&repoUpdateModel, "embedding-model", "", "new embedding model")
	repoUpdateCmd.Flags().StringSliceVar(&repoUpdateExclude, "exclude", nil, "exclude patterns to add (merged with existing)")
	repoUpdateCmd.Flags().StringVar(&repoUpdateImagePipe, "image-pipeline", "", "new image pipeline")
	repoUpdateCmd.Flags().StringVar(&repoUpdateVLMModel, "vlm-model", "", "new VLM model preset")
	repoUpdateCmd.Flags().StringVar(&repoUpdateASRModel, "asr-model", "", "new ASR model")
	repoUpdateCmd.Flags().BoolVar(&repoUpdateSkipPurge, "skip-purge", false, "do not purge newly excluded documents from the index")
}

// repoCmd groups repository management subcommands.
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage registered document repositories",
}

var repoAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a document repository",
	Long: `Register a repository so it can be indexed and searched.

Examples:
  # Register with defaults (native embeddings, md/txt/pdf/docx/html)
  researchd repo add notes ~/notes

  # Register with Ollama embeddings and a custom file set
  researchd repo add papers ~/papers --embedding-provider ollama --file-types md,pdf`,
	Args: cobra.ExactArgs(2),
	RunE: runRepoAdd,
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Unregister a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoRemove,
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered repositories",
	Args:  cobra.NoArgs,
	RunE:  runRepoList,
}

var repoShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a repository's full configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoShow,
}

var repoUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Update a repository's configuration",
	Long: `Apply a partial update. Flags that are not set leave the field
unchanged; --exclude patterns merge with the existing set, and newly
added patterns trigger a purge of now-excluded documents.

Examples:
  # Exclude build output and purge anything already indexed under it
  researchd repo update notes --exclude dist,node_modules

  # Switch to Ollama embeddings
  researchd repo update notes --embedding-provider ollama`,
	Args: cobra.ExactArgs(1),
	RunE: runRepoUpdate,
}

func runRepoAdd(cmd *cobra.Command, args []string) error {
	env, err := newRuntime()
	if err != nil {
		return err
	}

	path, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("resolving repository path: %w", err)
	}

	repo, err := env.factory.Registry().Add(registry.AddOptions{
		Name:              args[0],
		Path:              path,
		FileTypes:         repoAddFileTypes,
		EmbeddingProvider: repoAddProvider,
		EmbeddingModel:    repoAddModel,
		ExcludePatterns:   repoAddExclude,
		ImagePipeline:     repoAddImagePipeline,
		ImageVLMModel:     repoAddVLMModel,
		AudioASRModel:     repoAddASRModel,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Added repository %s\n", titleStyle.Render(repo.Name))
	cmd.Printf("  path: %s\n", repo.Path)
	cmd.Printf("  embedding provider: %s\n", repo.EmbeddingProvider)
	cmd.Printf("  file types: %s\n", strings.Join(repo.FileTypes, ", "))
	return nil
}

func runRepoRemove(cmd *cobra.Command, args []string) error {
	env, err := newRuntime()
	if err != nil {
		return err
	}
	if err := env.factory.Registry().Remove(args[0]); err != nil {
		return err
	}
	cmd.Printf("Removed repository %s\n", args[0])
	cmd.Println(dimStyle.Render("Indexed data under the data directory is kept; delete it manually if unwanted."))
	return nil
}

func runRepoList(cmd *cobra.Command, _ []string) error {
	env, err := newRuntime()
	if err != nil {
		return err
	}
	repos, err := env.factory.Registry().List()
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		cmd.Println("No repositories registered. Add one with \"researchd repo add\".")
		return nil
	}

	rows := make([][]string, 0, len(repos))
	for _, repo := range repos {
		rows = append(rows, []string{
			repo.Name,
			repo.Path,
			repo.EmbeddingProvider,
			strings.Join(repo.FileTypes, ","),
		})
	}
	cmd.Println(renderTable([]string{"NAME", "PATH", "PROVIDER", "FILE TYPES"}, rows))
	return nil
}

func runRepoShow(cmd *cobra.Command, args []string) error {
	env, err := newRuntime()
	if err != nil {
		return err
	}
	repo, err := env.factory.Registry().Get(args[0])
	if err != nil {
		return err
	}

	rows := [][]string{
		{"Name", repo.Name},
		{"Path", repo.Path},
		{"File types", strings.Join(repo.FileTypes, ", ")},
		{"Embedding provider", repo.EmbeddingProvider},
		{"Embedding model", orDefault(repo.EmbeddingModel, "(provider default)")},
		{"Exclude patterns", strings.Join(repo.ExcludePatterns, ", ")},
		{"Image pipeline", repo.ImagePipeline},
		{"VLM model", orDefault(repo.ImageVLMModel, "(default preset)")},
		{"ASR model", repo.AudioASRModel},
		{"Data directory", env.factory.RepositoryDataDir(repo.Name)},
	}
	cmd.Println(renderTable([]string{"FIELD", "VALUE"}, rows))
	return nil
}

func runRepoUpdate(cmd *cobra.Command, args []string) error {
	env, err := newRuntime()
	if err != nil {
		return err
	}

	opts := registry.UpdateOptions{
		FileTypes:       repoUpdateFileTypes,
		ExcludePatterns: repoUpdateExclude,
	}
	if cmd.Flags().Changed("path") {
		abs, err := filepath.Abs(repoUpdatePath)
		if err != nil {
			return fmt.Errorf("resolving repository path: %w", err)
		}
		opts.Path = &abs
	}
	if cmd.Flags().Changed("embedding-provider") {
		opts.EmbeddingProvider = &repoUpdateProvider
	}
	if cmd.Flags().Changed("embedding-model") {
		opts.EmbeddingModel = &repoUpdateModel
	}
	if cmd.Flags().Changed("image-pipeline") {
		opts.ImagePipeline = &repoUpdateImagePipe
	}
	if cmd.Flags().Changed("vlm-model") {
		opts.ImageVLMModel = &repoUpdateVLMModel
	}
	if cmd.Flags().Changed("asr-model") {
		opts.AudioASRModel = &repoUpdateASRModel
	}

	repo, added, err := env.factory.Registry().Update(args[0], opts)
	if err != nil {
		return err
	}
	cmd.Printf("Updated repository %s\n", titleStyle.Render(repo.Name))

	if len(added) == 0 || repoUpdateSkipPurge {
		return nil
	}

	// New exclude patterns may cover already-indexed documents.
	svcs, err := env.factory.ForRepositoryConfig(repo)
	if err != nil {
		return err
	}
	defer svcs.Close()

	purged, err := svcs.Indexer.PurgeExcluded(cmd.Context())
	if err != nil {
		return fmt.Errorf("purging newly excluded documents: %w", err)
	}
	cmd.Printf("New exclude patterns: %s\n", strings.Join(added, ", "))
	cmd.Printf("Purged %d previously indexed document(s)\n", purged)
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
