package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaLLM handles interactions with the Ollama LLM API
type OllamaLLM struct {
	Client      *api.Client
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewOllamaLLM creates a new Ollama LLM client. An empty host falls back to
// OLLAMA_HOST.
func NewOllamaLLM(host string, model string) (*OllamaLLM, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaLLM{
		Client:      client,
		Model:       model,
		Temperature: 0.1,
		MaxTokens:   1024,
	}, nil
}

// Name returns the backend and model
func (o *OllamaLLM) Name() string {
	return "ollama/" + o.Model
}

func (o *OllamaLLM) request(prompt string, stream bool) *api.GenerateRequest {
	return &api.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": o.Temperature,
			"num_predict": o.MaxTokens,
		},
	}
}

// Generate generates a complete response from the LLM
func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	var responseBuilder strings.Builder

	err := o.Client.Generate(ctx, o.request(prompt, false), func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return responseBuilder.String(), nil
}

// Stream forwards each generated fragment to onToken as it arrives
func (o *OllamaLLM) Stream(ctx context.Context, prompt string, onToken func(string) error) error {
	err := o.Client.Generate(ctx, o.request(prompt, true), func(resp api.GenerateResponse) error {
		if resp.Response == "" {
			return nil
		}
		return onToken(resp.Response)
	})
	if err != nil {
		return fmt.Errorf("failed to stream response: %w", err)
	}
	return nil
}
