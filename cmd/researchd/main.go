// Researchd indexes document repositories into a semantic search
// collection and serves the result to agents over MCP and to humans
// over this CLI.
//
// State lives under a single data directory (default ~/.researchd):
// the configuration file, per-repository vector collections, and
// per-repository checksum fingerprints.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/config"
	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/services"
)

var (
	// dataDirFlag overrides the data directory for all commands.
	dataDirFlag string

	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "researchd",
	Short: "Semantic document repository indexing and search",
	Long: `researchd maintains semantic indexes over local document repositories
and answers natural-language searches against them.

Register repositories with "repo add", build their indexes with "index",
query them with "search", and expose the whole tool set to agents with
"serve".`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default $RESEARCHD_DATA_DIR or ~/.researchd)")
}

// resolveDataDir picks the data directory: flag, then environment,
// then ~/.researchd.
func resolveDataDir() (string, error) {
	if dataDirFlag != "" {
		return dataDirFlag, nil
	}
	if dir := os.Getenv("RESEARCHD_DATA_DIR"); dir != "" {
		return dir, nil
	}
	return config.DefaultDataDir()
}

// runtimeEnv bundles what every command needs: the service factory,
// the loaded daemon configuration, and the logger it asked for.
type runtimeEnv struct {
	factory *services.Factory
	cfg     *config.Config
	logger  *zap.Logger
}

// newRuntime loads the daemon configuration, builds the logger it asks
// for, and returns a service factory rooted at the data directory.
func newRuntime() (*runtimeEnv, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewStore(dataDir).Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	return &runtimeEnv{
		factory: services.NewFactory(dataDir, logger),
		cfg:     cfg,
		logger:  logger,
	}, nil
}
