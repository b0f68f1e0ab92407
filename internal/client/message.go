package client

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"secureshield-assistant/internal/localmatch"
	"secureshield-assistant/internal/models"
)

// Origin records which stage of the chain produced a message.
type Origin string

const (
	OriginStream Origin = "stream"
	OriginAnswer Origin = "answer"
	OriginLocal  Origin = "local"
)

// StreamingMessage accumulates one assistant reply as events arrive.
type StreamingMessage struct {
	Query       string
	RawText     string
	UsingServer bool
	Citations   []models.Citation
	Origin      Origin
	// StreamFailed is set when the stream broke and a fallback answered;
	// the caller may offer RetryStream.
	StreamFailed bool
	StreamErr    error
}

// Apply folds one stream event into the message.
func (m *StreamingMessage) Apply(ev models.StreamEvent) {
	switch ev.Kind {
	case models.EventStatus:
		if ev.UsingServerContext {
			m.UsingServer = true
		}
	case models.EventContext:
		if ev.Citations != nil {
			m.Citations = ev.Citations
		}
	case models.EventToken:
		m.RawText += ev.Text
	}
}

// Text is RawText ready for display.
func (m *StreamingMessage) Text() string {
	return FormatText(m.RawText)
}

var (
	citationListRe   = regexp.MustCompile(`\s*\[[^\]]*#\d+[^\]]*\]\s*`)
	citationMarkerRe = regexp.MustCompile(`\s*\[#\d+\]\s*`)
)

// FormatText strips inline citation markers such as [#2] and [#1, #3].
func FormatText(text string) string {
	text = citationListRe.ReplaceAllString(text, " ")
	text = citationMarkerRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Ask answers query, always producing a message. It streams first; if the
// stream fails it asks the JSON endpoint, and if that fails too it answers
// from the local matcher. onUpdate, if set, sees every mutation.
func (c *Client) Ask(ctx context.Context, query string, onUpdate func(*StreamingMessage)) *StreamingMessage {
	msg := &StreamingMessage{Query: query}
	notify := func() {
		if onUpdate != nil {
			onUpdate(msg)
		}
	}

	err := c.consume(ctx, msg, notify)
	if err == nil {
		msg.Origin = OriginStream
		return msg
	}
	c.log.Warn("streaming failed, falling back to answer endpoint", "err", err)
	msg.StreamFailed = true
	msg.StreamErr = err

	ans, err := c.Answer(ctx, query, c.k)
	if err == nil {
		msg.RawText = ans.Answer
		msg.UsingServer = true
		msg.Citations = ans.Citations
		msg.Origin = OriginAnswer
		notify()
		return msg
	}
	c.log.Warn("answer endpoint failed, answering locally", "err", err)

	if c.local.Len() == 0 {
		c.local.Add(localmatch.DefaultDocuments...)
	}
	msg.RawText = c.local.Answer(query, c.localK)
	msg.UsingServer = false
	msg.Citations = nil
	msg.Origin = OriginLocal
	notify()
	return msg
}

// RetryStream restarts the whole chain for msg's query, beginning again with
// the stream.
func (c *Client) RetryStream(ctx context.Context, msg *StreamingMessage, onUpdate func(*StreamingMessage)) *StreamingMessage {
	return c.Ask(ctx, msg.Query, onUpdate)
}

func (c *Client) consume(ctx context.Context, msg *StreamingMessage, notify func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := c.Subscribe(ctx, msg.Query, c.k)
	if err != nil {
		return err
	}
	for ev := range events {
		switch ev.Kind {
		case models.EventDone:
			notify()
			return nil
		case models.EventError:
			return errors.New(ev.Message)
		}
		msg.Apply(ev)
		notify()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrStreamInterrupted
}
