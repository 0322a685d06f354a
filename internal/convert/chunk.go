package convert

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Fragment is a non-empty chunk of a converted document. FragmentIndex
// is the chunk's position in the original split output, preserved even
// when earlier chunks were dropped as empty.
type Fragment struct {
	Text          string
	DocumentPath  string
	FragmentIndex int
}

// ChunkResult holds the fragments produced from one document.
type ChunkResult struct {
	DocumentPath string
	Fragments    []Fragment
}

// Chunk splits a converted document into fragments. Markdown documents
// use the markdown-aware splitter so headings keep their sections
// together, everything else splits on recursive character boundaries.
func (s *Service) Chunk(doc Document, documentPath string) (*ChunkResult, error) {
	var (
		chunks []string
		err    error
	)

	switch doc.Format {
	case "md", "markdown":
		splitter := textsplitter.NewMarkdownTextSplitter(
			textsplitter.WithChunkSize(s.config.ChunkSize),
			textsplitter.WithChunkOverlap(s.config.ChunkOverlap),
		)
		chunks, err = splitter.SplitText(doc.Text)
	default:
		splitter := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(s.config.ChunkSize),
			textsplitter.WithChunkOverlap(s.config.ChunkOverlap),
		)
		chunks, err = splitter.SplitText(doc.Text)
	}
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", documentPath, err)
	}

	return &ChunkResult{
		DocumentPath: documentPath,
		Fragments:    fragmentsFromChunks(chunks, documentPath),
	}, nil
}

// fragmentsFromChunks trims chunks and drops the ones that are empty
// after trimming, keeping each survivor's original chunk index.
func fragmentsFromChunks(chunks []string, documentPath string) []Fragment {
	fragments := make([]Fragment, 0, len(chunks))
	for i, chunk := range chunks {
		text := strings.TrimSpace(chunk)
		if text == "" {
			continue
		}
		fragments = append(fragments, Fragment{
			Text:          text,
			DocumentPath:  documentPath,
			FragmentIndex: i,
		})
	}
	return fragments
}
