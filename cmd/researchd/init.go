package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

// initCmd creates the data directory and a default configuration file.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the researchd data directory",
	Long: `Create the data directory and write a default configuration file.

Safe to run multiple times: an existing configuration is left untouched.

Examples:
  # Initialize under ~/.researchd
  researchd init

  # Initialize a custom location
  researchd --data-dir /srv/researchd init`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	store := config.NewStore(dataDir)
	if _, err := os.Stat(store.FilePath()); err == nil {
		cmd.Printf("Configuration already exists at %s\n", store.FilePath())
		return nil
	}

	cfg := &config.Config{DataDir: dataDir}
	cfg.ApplyDefaults()
	if err := store.Save(cfg); err != nil {
		return fmt.Errorf("writing default configuration: %w", err)
	}

	cmd.Printf("Initialized data directory at %s\n", dataDir)
	cmd.Printf("Configuration written to %s\n", store.FilePath())
	return nil
}
