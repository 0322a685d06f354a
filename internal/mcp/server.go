// Package mcp exposes indexing and search as Model Context Protocol
// tools, calling the internal services directly.
package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/services"
)

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "researchd")
	Name string

	// Version is the server version (default: "1.0.0")
	Version string

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "researchd",
		Version: "1.0.0",
		Logger:  zap.NewNop(),
	}
}

// Server serves the researchd tool set over stdio or HTTP.
type Server struct {
	mcp     *mcp.Server
	factory *services.Factory
	logger  *zap.Logger
}

// NewServer creates an MCP server wired to the service factory.
func NewServer(cfg *Config, factory *services.Factory) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Name == "" {
		cfg.Name = "researchd"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if factory == nil {
		return nil, fmt.Errorf("service factory is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:     mcpServer,
		factory: factory,
		logger:  cfg.Logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves over the stdio transport until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// RunHTTP serves the streamable HTTP transport on the given port until
// the context is canceled.
func (s *Server) RunHTTP(ctx context.Context, port int) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("starting MCP server on HTTP transport", zap.Int("port", port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server run failed: %w", err)
		}
		return nil
	}
}
