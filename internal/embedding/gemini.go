package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultGeminiBaseURL is the Generative Language API host.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiEmbedder calls the embedContent method of the Generative Language API.
type GeminiEmbedder struct {
	client *resty.Client
	apiKey string
	Model  string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type embedContentRequest struct {
	Content geminiContent `json:"content"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiEmbedder creates an embedder for one model. baseURL may be empty.
func NewGeminiEmbedder(baseURL, apiKey, model string, timeout time.Duration) *GeminiEmbedder {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &GeminiEmbedder{client: client, apiKey: apiKey, Model: model}
}

// Name returns the backend and model
func (g *GeminiEmbedder) Name() string {
	return "gemini/" + g.Model
}

// Embed returns the embedding values for text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var result embedContentResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetPathParam("model", g.Model).
		SetBody(embedContentRequest{Content: geminiContent{Parts: []geminiPart{{Text: text}}}}).
		SetResult(&result).
		SetError(&geminiError{}).
		Post("/v1/models/{model}:embedContent")
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("embed request failed: %s", describeError(resp))
	}
	return result.Embedding.Values, nil
}

func describeError(resp *resty.Response) string {
	if apiErr, ok := resp.Error().(*geminiError); ok && apiErr != nil && apiErr.Error.Message != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
}
