// Package convert turns repository files into plain text documents and
// chunks them into indexable fragments.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for file formats the service cannot
// convert. Callers treat it as a per-file failure, not a fatal one.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is a converted file ready for chunking.
type Document struct {
	Path   string
	Text   string
	Format string
}

// ServiceConfig configures conversion and chunking.
type ServiceConfig struct {
	// ImagePipeline is "standard" or "vlm". Only "vlm" converts images.
	ImagePipeline string

	// ImageVLMModel overrides the vision model preset.
	ImageVLMModel string

	// AudioASRModel selects the transcription model ("tiny".."turbo").
	// Empty disables audio conversion.
	AudioASRModel string

	// OllamaURL is the Ollama server for the vision pipeline.
	// Default: http://localhost:11434.
	OllamaURL string

	// TranscriptionBaseURL is an OpenAI-compatible server exposing
	// /v1/audio/transcriptions. Empty disables audio conversion even
	// when AudioASRModel is set.
	TranscriptionBaseURL string

	// TranscriptionAPIKey authenticates against the transcription
	// endpoint. Falls back to OPENAI_API_KEY.
	TranscriptionAPIKey string

	// ChunkSize and ChunkOverlap tune the text splitters.
	// Defaults: 1000 and 100.
	ChunkSize    int
	ChunkOverlap int
}

// ApplyDefaults sets default values for unset fields.
func (c *ServiceConfig) ApplyDefaults() {
	if c.ImagePipeline == "" {
		c.ImagePipeline = "standard"
	}
	if c.OllamaURL == "" {
		c.OllamaURL = "http://localhost:11434"
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 100
	}
}

// Service converts files to text and chunks them into fragments.
type Service struct {
	config   ServiceConfig
	pipeline ConverterConfig
	vlm      *vlmCaptioner
	asr      *asrTranscriber
	logger   *zap.Logger
}

// NewService creates a conversion service. Vision and audio pipelines
// are constructed lazily on first use so plain-text indexing never pays
// for them.
func NewService(config ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()

	pipeline := BuildConverterConfig(config.ImagePipeline, config.ImageVLMModel, config.AudioASRModel)

	s := &Service{
		config:   config,
		pipeline: pipeline,
		logger:   logger,
	}
	if pipeline.VLM != nil {
		s.vlm = newVLMCaptioner(pipeline.VLM.Preset, config.OllamaURL)
	}
	if pipeline.ASR != nil && config.TranscriptionBaseURL != "" {
		s.asr = newASRTranscriber(pipeline.ASR.SpecName, config.TranscriptionBaseURL, config.TranscriptionAPIKey)
	}
	return s
}

var (
	imageExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	}
	audioExtensions = map[string]bool{
		".mp3": true, ".wav": true, ".m4a": true, ".flac": true, ".ogg": true,
	}
)

// Convert reads and converts a file into a plain text Document. The
// returned Format is the lowercased extension without the dot.
func (s *Service) Convert(ctx context.Context, path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format := strings.TrimPrefix(ext, ".")
	doc := Document{Path: path, Format: format}

	switch {
	case ext == ".txt" || ext == ".md" || ext == ".markdown":
		// Fast path, no loader involved
		data, err := os.ReadFile(path)
		if err != nil {
			return doc, fmt.Errorf("reading %s: %w", path, err)
		}
		doc.Text = string(data)
		return doc, nil

	case ext == ".html" || ext == ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return doc, fmt.Errorf("reading %s: %w", path, err)
		}
		text, err := loadDocuments(ctx, documentloaders.NewHTML(bytes.NewReader(data)))
		if err != nil {
			return doc, fmt.Errorf("converting %s: %w", path, err)
		}
		doc.Text = text
		return doc, nil

	case ext == ".csv":
		data, err := os.ReadFile(path)
		if err != nil {
			return doc, fmt.Errorf("reading %s: %w", path, err)
		}
		text, err := loadDocuments(ctx, documentloaders.NewCSV(bytes.NewReader(data)))
		if err != nil {
			return doc, fmt.Errorf("converting %s: %w", path, err)
		}
		doc.Text = text
		return doc, nil

	case ext == ".pdf":
		f, err := os.Open(path)
		if err != nil {
			return doc, fmt.Errorf("reading %s: %w", path, err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return doc, fmt.Errorf("reading %s: %w", path, err)
		}
		text, err := loadDocuments(ctx, documentloaders.NewPDF(f, info.Size()))
		if err != nil {
			return doc, fmt.Errorf("converting %s: %w", path, err)
		}
		doc.Text = text
		return doc, nil

	case imageExtensions[ext]:
		if s.vlm == nil {
			return doc, fmt.Errorf("%w: %s (image pipeline not enabled)", ErrUnsupportedFormat, ext)
		}
		text, err := s.vlm.Caption(ctx, path)
		if err != nil {
			return doc, fmt.Errorf("captioning %s: %w", path, err)
		}
		doc.Text = text
		return doc, nil

	case audioExtensions[ext]:
		if s.asr == nil {
			return doc, fmt.Errorf("%w: %s (audio transcription not configured)", ErrUnsupportedFormat, ext)
		}
		text, err := s.asr.Transcribe(ctx, path)
		if err != nil {
			return doc, fmt.Errorf("transcribing %s: %w", path, err)
		}
		doc.Text = text
		return doc, nil

	default:
		return doc, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// loadDocuments runs a langchaingo loader and joins the page contents.
func loadDocuments(ctx context.Context, l documentloaders.Loader) (string, error) {
	docs, err := l.Load(ctx)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.PageContent != "" {
			parts = append(parts, d.PageContent)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
