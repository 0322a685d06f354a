package convert

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const captionPrompt = "Describe the contents of this image in detail, including any visible text."

// vlmCaptioner converts images to text through an Ollama vision model.
// The client is constructed lazily so indexing text-only repositories
// never touches the model server.
type vlmCaptioner struct {
	model     string
	serverURL string

	once    sync.Once
	llm     *ollama.LLM
	initErr error
}

func newVLMCaptioner(model, serverURL string) *vlmCaptioner {
	return &vlmCaptioner{model: model, serverURL: serverURL}
}

func (v *vlmCaptioner) init() {
	v.llm, v.initErr = ollama.New(
		ollama.WithModel(v.model),
		ollama.WithServerURL(v.serverURL),
	)
}

// Caption reads the image and asks the vision model to describe it.
func (v *vlmCaptioner) Caption(ctx context.Context, path string) (string, error) {
	v.once.Do(v.init)
	if v.initErr != nil {
		return "", fmt.Errorf("creating vision client: %w", v.initErr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	resp, err := v.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(mimeType, data),
				llms.TextPart(captionPrompt),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generating caption: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision model returned no choices")
	}
	return resp.Choices[0].Content, nil
}
