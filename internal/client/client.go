// Package client talks to the assistant server the way the site widget
// does: stream first, then the JSON answer, then the local matcher.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"secureshield-assistant/internal/localmatch"
	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/models"
	"secureshield-assistant/internal/sse"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultServerURL = "http://localhost:8888"
	DefaultK         = 4
	defaultTimeout   = 90 * time.Second
)

// ErrStreamInterrupted is reported when the event stream ends without a
// done or error event.
var ErrStreamInterrupted = errors.New("stream ended before done")

// Options configure a Client.
type Options struct {
	ServerURL string
	K         int
	LocalK    int
	Timeout   time.Duration
}

// Client runs the answer fallback chain against one server.
type Client struct {
	api    *resty.Client
	stream *resty.Client
	local  *localmatch.Matcher
	k      int
	localK int
	log    logger.Logger
}

type apiError struct {
	Error string `json:"error"`
}

// New creates a new Client. The local matcher starts empty; call Seed to
// fill it from the server or fall back to the built-in documents.
func New(opts Options, log logger.Logger) *Client {
	if opts.ServerURL == "" {
		opts.ServerURL = DefaultServerURL
	}
	if opts.K <= 0 {
		opts.K = DefaultK
	}
	if opts.LocalK <= 0 {
		opts.LocalK = localmatch.DefaultK
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	base := strings.TrimSuffix(opts.ServerURL, "/")
	return &Client{
		api: resty.New().
			SetBaseURL(base).
			SetTimeout(opts.Timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		// The stream stays open as long as the model is generating, so it is
		// bounded by the caller's context instead of a client timeout.
		stream: resty.New().
			SetBaseURL(base).
			SetHeader("Accept", "text/event-stream").
			SetHeader("Cache-Control", "no-cache"),
		local:  localmatch.New(),
		k:      opts.K,
		localK: opts.LocalK,
		log:    log,
	}
}

// Seed loads the local matcher's documents from /api/scrape-content,
// falling back to the built-in documents. It returns how many were loaded.
func (c *Client) Seed(ctx context.Context) int {
	if c.local.Len() > 0 {
		return c.local.Len()
	}
	var docs []models.Document
	resp, err := c.api.R().SetContext(ctx).SetResult(&docs).Get("/api/scrape-content")
	switch {
	case err != nil:
		c.log.Warn("failed to fetch site content, using defaults", "err", err)
	case resp.IsError():
		c.log.Warn("failed to fetch site content, using defaults", "status", resp.StatusCode())
	}
	if err != nil || resp.IsError() || len(docs) == 0 {
		docs = localmatch.DefaultDocuments
	}
	return c.local.Add(docs...)
}

// Answer calls the non-streaming endpoint.
func (c *Client) Answer(ctx context.Context, query string, k int) (*models.Answer, error) {
	if k <= 0 {
		k = c.k
	}
	var result models.Answer
	var apiErr apiError
	resp, err := c.api.R().
		SetContext(ctx).
		SetBody(map[string]any{"q": query, "k": k}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/answer")
	if err != nil {
		return nil, fmt.Errorf("failed to call answer endpoint: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("answer endpoint returned %d: %s", resp.StatusCode(), msg)
	}
	return &result, nil
}

// Subscribe opens the answer stream. The returned channel delivers events in
// arrival order and is closed after done, error or cancellation of ctx. A
// stream that breaks off early ends with a synthesized error event.
func (c *Client) Subscribe(ctx context.Context, query string, k int) (<-chan models.StreamEvent, error) {
	if k <= 0 {
		k = c.k
	}
	resp, err := c.stream.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": query, "k": strconv.Itoa(k)}).
		SetDoNotParseResponse(true).
		Get("/api/answer/stream")
	if err != nil {
		return nil, fmt.Errorf("failed to open answer stream: %w", err)
	}
	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		body.Close()
		return nil, fmt.Errorf("answer stream returned %d", resp.StatusCode())
	}

	events := make(chan models.StreamEvent)
	go func() {
		defer close(events)
		defer body.Close()

		send := func(ev models.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		dec := sse.NewDecoder(body)
		for {
			raw, err := dec.Next()
			if err != nil {
				if ctx.Err() == nil {
					send(models.StreamEvent{Kind: models.EventError, Message: ErrStreamInterrupted.Error()})
				}
				return
			}
			ev, err := decodeEvent(raw)
			if err != nil {
				c.log.Debug("skipping malformed stream event", "event", raw.Name, "err", err)
				continue
			}
			if !send(ev) {
				return
			}
			if ev.Kind == models.EventDone || ev.Kind == models.EventError {
				return
			}
		}
	}()
	return events, nil
}

func decodeEvent(raw sse.Event) (models.StreamEvent, error) {
	var payload struct {
		UsingServerContext bool              `json:"usingServerContext"`
		Citations          []models.Citation `json:"citations"`
		Text               string            `json:"text"`
		Message            string            `json:"message"`
	}
	if raw.Data != "" {
		if err := json.Unmarshal([]byte(raw.Data), &payload); err != nil {
			return models.StreamEvent{}, fmt.Errorf("failed to decode %q payload: %w", raw.Name, err)
		}
	}
	ev := models.StreamEvent{Kind: models.EventKind(raw.Name)}
	switch ev.Kind {
	case models.EventStatus:
		ev.UsingServerContext = payload.UsingServerContext
	case models.EventContext:
		ev.Citations = payload.Citations
	case models.EventToken:
		ev.Text = payload.Text
	case models.EventError:
		ev.Message = payload.Message
	case models.EventDone:
	default:
		return models.StreamEvent{}, fmt.Errorf("unknown event %q", raw.Name)
	}
	return ev, nil
}
