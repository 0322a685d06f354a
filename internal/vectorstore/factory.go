package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// Backend names accepted by New.
const (
	BackendChromem = "chromem"
	BackendQdrant  = "qdrant"
)

// Config selects and configures a storage backend.
type Config struct {
	// Backend is "chromem" (default) or "qdrant".
	Backend string

	Chromem ChromemConfig
	Qdrant  QdrantConfig
}

// New constructs the Store for the configured backend. embedder may be
// nil only for the chromem backend, which then embeds with its own
// default function.
func New(config Config, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch config.Backend {
	case BackendChromem, "":
		return NewChromemStore(config.Chromem, embedder, logger)
	case BackendQdrant:
		return NewQdrantStore(config.Qdrant, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, config.Backend)
	}
}
