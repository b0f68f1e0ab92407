package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"secureshield-assistant/internal/config"
	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Data: config.DataConfig{
			Dir:         dir,
			ScrapedText: filepath.Join(dir, "scraped.txt"),
			ScrapedJSON: filepath.Join(dir, "scraped.json"),
			IndexPath:   filepath.Join(dir, "site.index"),
			MetaPath:    filepath.Join(dir, "site_meta.json"),
		},
		Index:      config.IndexConfig{Store: "file", DefaultK: 4},
		Embedding:  config.EmbeddingConfig{Provider: ProviderGemini, Models: []string{"textembedding-005", "text-embedding-004"}},
		Generation: config.GenerationConfig{Provider: ProviderGemini, Models: []string{"gemini-2.5-flash-lite", "gemini-1.5-flash"}, Temperature: 0.3, MaxTokens: 512},
		Gemini:     config.GeminiConfig{APIKey: "test-key"},
		Ollama:     config.OllamaConfig{MaxRetries: 3, RetryBackoff: time.Millisecond},
	}
}

func TestNewEmbedder(t *testing.T) {
	t.Run("Should build a gemini ladder in order", func(t *testing.T) {
		e, err := NewEmbedder(testConfig(t), logger.Discard(), nil)
		require.NoError(t, err)
		assert.Equal(t, "ladder[gemini/textembedding-005 gemini/text-embedding-004]", e.Name())
	})

	t.Run("Should build an ollama ladder", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Embedding.Provider = ProviderOllama
		cfg.Embedding.Models = []string{"nomic-embed-text"}
		cfg.Ollama.Host = "http://localhost:11434"
		e, err := NewEmbedder(cfg, logger.Discard(), nil)
		require.NoError(t, err)
		assert.Equal(t, "ladder[ollama/nomic-embed-text]", e.Name())
	})

	t.Run("Should require an api key for gemini", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Gemini.APIKey = ""
		_, err := NewEmbedder(cfg, logger.Discard(), nil)
		assert.True(t, errors.Is(err, errMissingAPIKey))
	})

	t.Run("Should reject an unknown provider", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Embedding.Provider = "openai"
		_, err := NewEmbedder(cfg, logger.Discard(), nil)
		assert.ErrorContains(t, err, `unknown embedding.provider "openai"`)
	})
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(testConfig(t), logger.Discard(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini/gemini-2.5-flash-lite", "gemini/gemini-1.5-flash"}, g.Names())

	cfg := testConfig(t)
	cfg.Generation.Provider = "bard"
	_, err = NewGenerator(cfg, logger.Discard(), nil)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	_, ready := a.Service.Status()
	assert.False(t, ready)
	assert.False(t, a.Service.Load(context.Background()))
	assert.NotNil(t, a.Metrics)

	store, closeStore, err := NewStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, closeStore)
	assert.IsType(t, &vectorindex.FileStore{}, store)
}

func TestNewEmbedder_OllamaSurvivesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"model is loading"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[0.25,0.75]}`))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Embedding.Provider = ProviderOllama
	cfg.Embedding.Models = []string{"nomic-embed-text"}
	cfg.Ollama.Host = srv.URL

	var failures []string
	e, err := NewEmbedder(cfg, logger.Discard(), func(rung string, _ error) { failures = append(failures, rung) })
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "is flood damage covered?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.75}, v)
	assert.EqualValues(t, 2, calls.Load())
	assert.Empty(t, failures)
}
