package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConvertPlainTextFastPath(t *testing.T) {
	svc := NewService(ServiceConfig{}, zap.NewNop())
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		format  string
	}{
		{name: "txt", file: "notes.txt", content: "plain text body", format: "txt"},
		{name: "md", file: "guide.md", content: "# Heading\n\nbody", format: "md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			doc, err := svc.Convert(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, doc.Text)
			assert.Equal(t, tt.format, doc.Format)
			assert.Equal(t, path, doc.Path)
		})
	}
}

func TestConvertHTMLStripsMarkup(t *testing.T) {
	svc := NewService(ServiceConfig{}, zap.NewNop())
	path := writeFile(t, t.TempDir(), "page.html",
		"<html><body><h1>Title</h1><p>Paragraph text.</p></body></html>")

	doc, err := svc.Convert(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Title")
	assert.Contains(t, doc.Text, "Paragraph text.")
	assert.NotContains(t, doc.Text, "<p>")
}

func TestConvertCSV(t *testing.T) {
	svc := NewService(ServiceConfig{}, zap.NewNop())
	path := writeFile(t, t.TempDir(), "data.csv", "name,role\nada,engineer\n")

	doc, err := svc.Convert(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "ada")
}

func TestConvertUnsupportedFormat(t *testing.T) {
	svc := NewService(ServiceConfig{}, zap.NewNop())
	path := writeFile(t, t.TempDir(), "archive.zip", "not really a zip")

	_, err := svc.Convert(context.Background(), path)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestConvertImageWithoutVLMPipeline(t *testing.T) {
	svc := NewService(ServiceConfig{}, zap.NewNop())
	path := writeFile(t, t.TempDir(), "shot.png", "fake image bytes")

	_, err := svc.Convert(context.Background(), path)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestConvertAudioWithoutTranscriptionEndpoint(t *testing.T) {
	// ASR model alone is not enough, the endpoint must be configured too
	svc := NewService(ServiceConfig{AudioASRModel: "turbo"}, zap.NewNop())
	path := writeFile(t, t.TempDir(), "talk.mp3", "fake audio bytes")

	_, err := svc.Convert(context.Background(), path)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestConvertMissingFile(t *testing.T) {
	svc := NewService(ServiceConfig{}, zap.NewNop())

	_, err := svc.Convert(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	require.Error(t, err)
}

func TestChunkDropsEmptyChunksKeepsIndices(t *testing.T) {
	frags := fragmentsFromChunks([]string{"first", "   ", "", "fourth"}, "docs/a.md")

	require.Len(t, frags, 2)
	assert.Equal(t, "first", frags[0].Text)
	assert.Equal(t, 0, frags[0].FragmentIndex)
	assert.Equal(t, "fourth", frags[1].Text)
	assert.Equal(t, 3, frags[1].FragmentIndex)
	assert.Equal(t, "docs/a.md", frags[0].DocumentPath)
}

func TestChunkWhitespaceOnlyDocument(t *testing.T) {
	svc := NewService(ServiceConfig{}, zap.NewNop())

	result, err := svc.Chunk(Document{Path: "a.txt", Text: "   \n\t\n  ", Format: "txt"}, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, result.Fragments)
	assert.Equal(t, "a.txt", result.DocumentPath)
}

func TestChunkPlainText(t *testing.T) {
	svc := NewService(ServiceConfig{ChunkSize: 50, ChunkOverlap: 10}, zap.NewNop())

	text := "First paragraph with some words.\n\nSecond paragraph with more words.\n\nThird paragraph closes it out."
	result, err := svc.Chunk(Document{Path: "a.txt", Text: text, Format: "txt"}, "docs/a.txt")
	require.NoError(t, err)
	require.NotEmpty(t, result.Fragments)

	for _, f := range result.Fragments {
		assert.NotEmpty(t, f.Text)
		assert.Equal(t, "docs/a.txt", f.DocumentPath)
	}
}

func TestChunkMarkdownKeepsHeadingContext(t *testing.T) {
	svc := NewService(ServiceConfig{ChunkSize: 100, ChunkOverlap: 0}, zap.NewNop())

	text := "# Install\n\nRun the installer.\n\n# Usage\n\nStart the daemon."
	result, err := svc.Chunk(Document{Path: "g.md", Text: text, Format: "md"}, "docs/g.md")
	require.NoError(t, err)
	require.NotEmpty(t, result.Fragments)

	joined := ""
	for _, f := range result.Fragments {
		joined += f.Text + "\n"
	}
	assert.Contains(t, joined, "Install")
	assert.Contains(t, joined, "Usage")
}

func TestResolveASRSpecName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tiny", "WHISPER_TINY"},
		{"base", "WHISPER_BASE"},
		{"small", "WHISPER_SMALL"},
		{"medium", "WHISPER_MEDIUM"},
		{"large", "WHISPER_LARGE"},
		{"turbo", "WHISPER_TURBO"},
		{"unknown-model", "WHISPER_TURBO"},
		{"", "WHISPER_TURBO"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveASRSpecName(tt.in), "input %q", tt.in)
	}
}

func TestResolveVLMPreset(t *testing.T) {
	assert.Equal(t, "granite_docling", ResolveVLMPreset(""))
	assert.Equal(t, "llava", ResolveVLMPreset("llava"))
}

func TestBuildConverterConfig(t *testing.T) {
	t.Run("standard pipeline disables vlm", func(t *testing.T) {
		cfg := BuildConverterConfig("standard", "", "turbo")
		assert.Nil(t, cfg.VLM)
		require.NotNil(t, cfg.ASR)
		assert.Equal(t, "WHISPER_TURBO", cfg.ASR.SpecName)
	})

	t.Run("vlm pipeline with default preset", func(t *testing.T) {
		cfg := BuildConverterConfig("vlm", "", "")
		require.NotNil(t, cfg.VLM)
		assert.Equal(t, "granite_docling", cfg.VLM.Preset)
		assert.Nil(t, cfg.ASR)
	})

	t.Run("empty asr model disables audio", func(t *testing.T) {
		cfg := BuildConverterConfig("standard", "", "")
		assert.Nil(t, cfg.ASR)
	})
}

func TestASRWireModel(t *testing.T) {
	assert.Equal(t, "whisper-turbo", asrWireModel("WHISPER_TURBO"))
	assert.Equal(t, "whisper-tiny", asrWireModel("WHISPER_TINY"))
}
