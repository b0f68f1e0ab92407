package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"github.com/sethvargo/go-retry"
)

// DefaultOllamaMaxRetries is how many times a failed embedding call is
// repeated before the model is given up on.
const DefaultOllamaMaxRetries = 3

// OllamaEmbedder generates embeddings using Ollama API
type OllamaEmbedder struct {
	Client     *api.Client
	Model      string
	MaxRetries int
	// RetryBackoff is the first delay between attempts; later delays grow
	// along a Fibonacci sequence.
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// NewOllamaEmbedder creates a new Ollama embedder. An empty host falls back
// to OLLAMA_HOST.
func NewOllamaEmbedder(host string, model string) (*OllamaEmbedder, error) {
	hostURL, err := ollamaHost(host)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaEmbedder{
		Client:       client,
		Model:        model,
		MaxRetries:   DefaultOllamaMaxRetries,
		RetryBackoff: time.Second,
		Timeout:      time.Second * 30,
	}, nil
}

func ollamaHost(host string) (*url.URL, error) {
	if host == "" {
		return envconfig.Host(), nil
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return u, nil
}

// Name returns the backend and model
func (e *OllamaEmbedder) Name() string {
	return "ollama/" + e.Model
}

// Embed generates an embedding for a text, retrying up to MaxRetries times
// while ctx allows.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	base := e.RetryBackoff
	if base <= 0 {
		base = time.Second
	}
	backoff := retry.WithMaxRetries(uint64(max(e.MaxRetries, 0)), retry.NewFibonacci(base))

	var embedding []float32
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		embedding, err = e.createEmbedding(ctx, text)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding after %d retries: %w", e.MaxRetries, err)
	}
	return embedding, nil
}

// createEmbedding is a helper function to create a single embedding
func (e *OllamaEmbedder) createEmbedding(ctx context.Context, text string) ([]float32, error) {
	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
