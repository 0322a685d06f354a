// Package config provides configuration loading and persistence for researchd.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "RESEARCHD_"

// Load loads configuration from the YAML file at path, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (RESEARCHD_MCP_PORT, RESEARCHD_QDRANT_HOST, ...)
//  2. YAML config file (<data-dir>/config.yaml)
//  3. Hardcoded defaults
//
// An absent file is not an error; defaults apply. A present but unparseable
// file is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	// Environment overrides: RESEARCHD_QDRANT_HOST -> qdrant.host.
	// Compound leaf names keep their underscores (mcp_port, data_dir, ...).
	if err := k.Load(env.Provider(envPrefix, ".", transformEnv), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// transformEnv maps an environment variable name to a koanf key.
//
//	RESEARCHD_MCP_PORT        -> mcp_port
//	RESEARCHD_DATA_DIR        -> data_dir
//	RESEARCHD_VECTOR_BACKEND  -> vector_backend
//	RESEARCHD_QDRANT_HOST     -> qdrant.host
//	RESEARCHD_LOG_LEVEL       -> log.level
func transformEnv(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))

	// Nested sections use dot paths; everything else is a flat leaf with
	// underscores preserved.
	for _, section := range []string{"qdrant", "log", "ollama", "transcription"} {
		if strings.HasPrefix(s, section+"_") {
			return section + "." + strings.TrimPrefix(s, section+"_")
		}
	}
	return s
}
