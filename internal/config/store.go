package config

import (
	"fmt"
	"os"
	"path/filepath"

	goyaml "gopkg.in/yaml.v3"
)

// Store reads and writes the configuration file that owns the repository
// set. The CLI and the registry mutate configuration exclusively through it.
type Store struct {
	dir  string
	file string
}

// NewStore creates a store rooted at dir. The configuration file is
// <dir>/config.yaml.
func NewStore(dir string) *Store {
	return &Store{
		dir:  dir,
		file: filepath.Join(dir, "config.yaml"),
	}
}

// Dir returns the data directory the store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// FilePath returns the configuration file path.
func (s *Store) FilePath() string {
	return s.file
}

// Load reads the configuration from disk. An absent or empty file yields a
// default configuration; a present but unparseable file is an error.
func (s *Store) Load() (*Config, error) {
	cfg, err := Load(s.file)
	if err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = s.dir
	}
	return cfg, nil
}

// Save writes the configuration to disk, creating directories as needed.
func (s *Store) Save(cfg *Config) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := goyaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.Rename(tmp, s.file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}
