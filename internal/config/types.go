package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Vector store backends.
const (
	BackendChromem = "chromem"
	BackendQdrant  = "qdrant"
)

// Embedding provider names. ProviderNative delegates embedding to the
// vector store itself; the others compute vectors explicitly.
const (
	ProviderNative = "native"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Image pipeline kinds.
const (
	ImagePipelineStandard = "standard"
	ImagePipelineVLM      = "vlm"
)

// RepositoryConfig describes a single document repository.
//
// Instances are immutable values: updates construct a new instance rather
// than mutating in place (see registry.Update).
type RepositoryConfig struct {
	// Name uniquely identifies the repository (case-sensitive).
	Name string `koanf:"name" yaml:"name"`

	// Path is the repository root directory.
	Path string `koanf:"path" yaml:"path"`

	// FileTypes are the file extensions (without dot) to scan.
	FileTypes []string `koanf:"file_types" yaml:"file_types"`

	// EmbeddingProvider selects how fragments are embedded.
	// One of "native", "ollama", "openai".
	EmbeddingProvider string `koanf:"embedding_provider" yaml:"embedding_provider"`

	// EmbeddingModel overrides the provider's default model.
	EmbeddingModel string `koanf:"embedding_model" yaml:"embedding_model,omitempty"`

	// ExcludePatterns are glob patterns matched per path segment.
	ExcludePatterns []string `koanf:"exclude_patterns" yaml:"exclude_patterns"`

	// ImagePipeline selects image handling: "standard" or "vlm".
	ImagePipeline string `koanf:"image_pipeline" yaml:"image_pipeline"`

	// ImageVLMModel overrides the default VLM model preset.
	ImageVLMModel string `koanf:"image_vlm_model" yaml:"image_vlm_model,omitempty"`

	// AudioASRModel is the transcription model for audio files.
	// Empty disables audio indexing.
	AudioASRModel string `koanf:"audio_asr_model" yaml:"audio_asr_model"`
}

// DefaultFileTypes returns the extensions scanned when none are configured.
func DefaultFileTypes() []string {
	return []string{"md", "txt", "pdf", "docx", "html"}
}

// DefaultExcludePatterns returns the default exclusion list.
// Dot files and dot folders are skipped unless configured otherwise.
func DefaultExcludePatterns() []string {
	return []string{".*"}
}

// ApplyDefaults sets default values for unset fields.
func (r *RepositoryConfig) ApplyDefaults() {
	if len(r.FileTypes) == 0 {
		r.FileTypes = DefaultFileTypes()
	}
	if r.EmbeddingProvider == "" {
		r.EmbeddingProvider = ProviderNative
	}
	if r.ExcludePatterns == nil {
		r.ExcludePatterns = DefaultExcludePatterns()
	}
	if r.ImagePipeline == "" {
		r.ImagePipeline = ImagePipelineStandard
	}
	if r.AudioASRModel == "" {
		r.AudioASRModel = "turbo"
	}
}

// Validate validates the repository configuration.
func (r RepositoryConfig) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: repository name required", ErrInvalidConfig)
	}
	if r.Path == "" {
		return fmt.Errorf("%w: repository path required", ErrInvalidConfig)
	}
	return nil
}

// QdrantConfig holds connection settings for the optional Qdrant backend.
type QdrantConfig struct {
	// Host is the Qdrant server hostname. Default: "localhost".
	Host string `koanf:"host" yaml:"host"`

	// Port is the Qdrant gRPC port. Default: 6334.
	Port int `koanf:"port" yaml:"port"`

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool `koanf:"use_tls" yaml:"use_tls"`
}

// OllamaConfig points at the local model server used by the ollama
// embedding provider and the VLM image pipeline.
type OllamaConfig struct {
	// URL is the Ollama server URL. Default: "http://localhost:11434".
	URL string `koanf:"url" yaml:"url"`
}

// TranscriptionConfig points at an OpenAI-compatible server exposing
// /v1/audio/transcriptions. Leaving BaseURL empty disables audio
// indexing regardless of per-repository ASR settings.
type TranscriptionConfig struct {
	BaseURL string `koanf:"base_url" yaml:"base_url,omitempty"`
	APIKey  string `koanf:"api_key" yaml:"api_key,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, error. Default: info.
	Level string `koanf:"level" yaml:"level"`

	// Format is "console" or "json". Default: console.
	Format string `koanf:"format" yaml:"format"`
}

// Config is the top-level researchd configuration.
type Config struct {
	// Repositories is the configured repository set.
	Repositories []RepositoryConfig `koanf:"repositories" yaml:"repositories"`

	// DefaultEmbeddingProvider applies to repositories added without one.
	DefaultEmbeddingProvider string `koanf:"default_embedding_provider" yaml:"default_embedding_provider"`

	// DefaultEmbeddingModel applies to repositories added without one.
	DefaultEmbeddingModel string `koanf:"default_embedding_model" yaml:"default_embedding_model,omitempty"`

	// MCPPort is the HTTP port for the MCP server. Default: 8392.
	MCPPort int `koanf:"mcp_port" yaml:"mcp_port"`

	// DataDir is the root for all persisted state. Default: ~/.researchd.
	DataDir string `koanf:"data_dir" yaml:"data_dir"`

	// VectorBackend selects the Document Collection backend:
	// "chromem" (embedded, default) or "qdrant" (remote).
	VectorBackend string `koanf:"vector_backend" yaml:"vector_backend"`

	// Qdrant holds remote backend settings (only used when selected).
	Qdrant QdrantConfig `koanf:"qdrant" yaml:"qdrant"`

	// Ollama holds local model server settings.
	Ollama OllamaConfig `koanf:"ollama" yaml:"ollama"`

	// Transcription holds audio transcription endpoint settings.
	Transcription TranscriptionConfig `koanf:"transcription" yaml:"transcription,omitempty"`

	// Log holds logging settings.
	Log LogConfig `koanf:"log" yaml:"log"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.DefaultEmbeddingProvider == "" {
		c.DefaultEmbeddingProvider = ProviderNative
	}
	if c.MCPPort == 0 {
		c.MCPPort = 8392
	}
	if c.VectorBackend == "" {
		c.VectorBackend = BackendChromem
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = "http://localhost:11434"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	for i := range c.Repositories {
		c.Repositories[i].ApplyDefaults()
	}
}

// DefaultDataDir returns ~/.researchd.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".researchd"), nil
}
