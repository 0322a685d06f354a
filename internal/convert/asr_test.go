package convert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTranscribeSendsMultipartAndParsesText(t *testing.T) {
	var gotModel, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "hello from the recording"}`))
	}))
	defer server.Close()

	a := newASRTranscriber("WHISPER_TURBO", server.URL, "test-key")
	path := writeFile(t, t.TempDir(), "talk.mp3", "fake audio bytes")

	text, err := a.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello from the recording", text)
	assert.Equal(t, "whisper-turbo", gotModel)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestTranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := newASRTranscriber("WHISPER_TURBO", server.URL, "")
	path := writeFile(t, t.TempDir(), "talk.mp3", "fake audio bytes")

	_, err := a.Transcribe(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestConvertAudioThroughConfiguredEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "transcribed words"}`))
	}))
	defer server.Close()

	svc := NewService(ServiceConfig{
		AudioASRModel:        "turbo",
		TranscriptionBaseURL: server.URL,
	}, zap.NewNop())
	path := writeFile(t, t.TempDir(), "talk.wav", "fake audio bytes")

	doc, err := svc.Convert(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "transcribed words", doc.Text)
	assert.Equal(t, "wav", doc.Format)
}
