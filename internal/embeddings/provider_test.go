package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantErr  error
	}{
		{provider: "native", wantName: "native"},
		{provider: "", wantName: "native"},
		{provider: "chromadb", wantName: "native"}, // legacy alias
		{provider: "ollama", wantName: "ollama"},
		{provider: "openai", wantName: "openai"},
		{provider: "cohere", wantErr: ErrUnknownProvider},
		{provider: "OLLAMA", wantErr: ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := New(ProviderConfig{Provider: tt.provider})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.NoError(t, p.Close())
		})
	}
}

func TestNativeProviderRefusesToEmbed(t *testing.T) {
	p, err := New(ProviderConfig{Provider: "native"})
	require.NoError(t, err)
	assert.True(t, IsNative(p))

	_, err = p.EmbedDocuments(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, ErrNativeProvider)

	_, err = p.EmbedQuery(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNativeProvider)
}

func TestExplicitProvidersAreNotNative(t *testing.T) {
	for _, name := range []string{"ollama", "openai"} {
		p, err := New(ProviderConfig{Provider: name})
		require.NoError(t, err)
		assert.False(t, IsNative(p), name)
	}
}

func TestDefaultModels(t *testing.T) {
	ollama := newOllamaProvider(ProviderConfig{Provider: "ollama"})
	assert.Equal(t, DefaultOllamaModel, ollama.cfg.Model)

	openai := newOpenAIProvider(ProviderConfig{Provider: "openai", APIKey: "test"})
	assert.Equal(t, DefaultOpenAIModel, openai.cfg.Model)
}

func TestEmbedDocumentsEmptyInput(t *testing.T) {
	for _, name := range []string{"ollama", "openai"} {
		p, err := New(ProviderConfig{Provider: name, APIKey: "test"})
		require.NoError(t, err)

		_, err = p.EmbedDocuments(context.Background(), nil)
		assert.ErrorIs(t, err, ErrEmptyInput, name)
	}
}
