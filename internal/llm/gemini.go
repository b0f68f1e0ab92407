package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"secureshield-assistant/internal/sse"

	"github.com/go-resty/resty/v2"
)

// DefaultGeminiBaseURL is the Generative Language API host.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiLLM calls generateContent and streamGenerateContent.
type GeminiLLM struct {
	client      *resty.Client
	apiKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// text concatenates the parts of the first candidate.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewGeminiLLM creates a generator for one model. baseURL may be empty.
func NewGeminiLLM(baseURL, apiKey, model string, timeout time.Duration) *GeminiLLM {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &GeminiLLM{
		client:      client,
		apiKey:      apiKey,
		Model:       model,
		Temperature: 0.2,
		MaxTokens:   1024,
	}
}

// Name returns the backend and model
func (g *GeminiLLM) Name() string {
	return "gemini/" + g.Model
}

func (g *GeminiLLM) body(prompt string) generateRequest {
	return generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:     g.Temperature,
			MaxOutputTokens: g.MaxTokens,
		},
	}
}

// Generate returns the complete answer for prompt.
func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	var result generateResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetPathParam("model", g.Model).
		SetBody(g.body(prompt)).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("generate request failed: %s", describe(resp.StatusCode(), resp.Error(), resp.String()))
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", result.PromptFeedback.BlockReason)
	}
	return result.text(), nil
}

// Stream reads the alt=sse variant of streamGenerateContent and forwards
// each chunk's text.
func (g *GeminiLLM) Stream(ctx context.Context, prompt string, onToken func(string) error) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"key": g.apiKey, "alt": "sse"}).
		SetPathParam("model", g.Model).
		SetHeader("Accept", "text/event-stream").
		SetBody(g.body(prompt)).
		SetDoNotParseResponse(true).
		Post("/v1beta/models/{model}:streamGenerateContent")
	if err != nil {
		return fmt.Errorf("stream request failed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(body, 64<<10))
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		return fmt.Errorf("stream request failed: %s", describe(resp.StatusCode(), &apiErr, string(raw)))
	}

	dec := sse.NewDecoder(body)
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}

		var chunk generateResponse
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}
		if text := chunk.text(); text != "" {
			if err := onToken(text); err != nil {
				return err
			}
		}
	}
}

func describe(status int, errBody any, raw string) string {
	if e, ok := errBody.(*apiError); ok && e != nil && e.Error.Message != "" {
		return fmt.Sprintf("status %d: %s", status, e.Error.Message)
	}
	return fmt.Sprintf("status %d: %s", status, strings.TrimSpace(raw))
}
