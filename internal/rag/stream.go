package rag

import (
	"context"

	"secureshield-assistant/internal/llm"
	"secureshield-assistant/internal/models"
)

// AnswerStream runs Answer as an event sequence: status, context, any
// number of tokens, then done. A failure at any step ends the sequence with
// a single error event. The channel is closed after the last event or when
// ctx is cancelled.
func (s *Service) AnswerStream(ctx context.Context, query string, k int) <-chan models.StreamEvent {
	events := make(chan models.StreamEvent, 8)

	go func() {
		defer close(events)

		send := func(ev models.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(err error) {
			s.log.Warn("answer stream failed", "query", query, "err", err)
			send(models.StreamEvent{Kind: models.EventError, Message: err.Error()})
		}

		hits, err := s.Search(ctx, query, k)
		if err != nil {
			fail(err)
			return
		}
		if !send(models.StreamEvent{Kind: models.EventStatus, UsingServerContext: true}) {
			return
		}
		if !send(models.StreamEvent{Kind: models.EventContext, Citations: s.Citations(hits)}) {
			return
		}

		err = s.generator.Stream(ctx, llm.GeneratePrompt(query, hits), func(token string) error {
			if !send(models.StreamEvent{Kind: models.EventToken, Text: token}) {
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			if ctx.Err() == nil {
				fail(err)
			}
			return
		}
		send(models.StreamEvent{Kind: models.EventDone})
	}()

	return events
}
