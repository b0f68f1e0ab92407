// Package llm builds grounded prompts and calls text-generation backends,
// either for a complete answer or as a token stream.
package llm

import (
	"context"
	"errors"
	"fmt"

	"secureshield-assistant/internal/fallback"
	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/models"
)

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("generation model returned no text")

// Generator produces text for a prompt.
type Generator interface {
	// Name identifies the backend and model, e.g. "gemini/gemini-1.5-flash".
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	// Stream calls onToken with each text fragment as the model produces it.
	// An error returned by onToken aborts the stream.
	Stream(ctx context.Context, prompt string, onToken func(string) error) error
}

// Ladder tries generators in order, primary first.
type Ladder struct {
	rungs fallback.Ladder[Generator]
	log   logger.Logger
}

// NewLadder creates a generation ladder. onFailure may be nil; every failed
// rung is logged either way.
func NewLadder(log logger.Logger, onFailure func(rung string, err error), generators ...Generator) *Ladder {
	if log == nil {
		log = logger.Discard()
	}
	rungs := make([]fallback.Rung[Generator], len(generators))
	for i, g := range generators {
		rungs[i] = fallback.Rung[Generator]{Name: g.Name(), Value: g}
	}
	return &Ladder{
		log: log,
		rungs: fallback.New(func(rung string, err error) {
			log.Warn("generation model failed, trying next", "model", rung, "err", err)
			if onFailure != nil {
				onFailure(rung, err)
			}
		}, rungs...),
	}
}

// Name lists the ladder's models.
func (l *Ladder) Name() string {
	return fmt.Sprintf("ladder%v", l.rungs.Names())
}

// Names lists the models in ladder order.
func (l *Ladder) Names() []string {
	return l.rungs.Names()
}

// Generate returns the first non-empty answer on the ladder. Exhausting the
// ladder is reported as models.ErrGeneration.
func (l *Ladder) Generate(ctx context.Context, prompt string) (string, error) {
	return l.generate(ctx, l.rungs, prompt)
}

func (l *Ladder) generate(ctx context.Context, rungs fallback.Ladder[Generator], prompt string) (string, error) {
	text, err := fallback.Climb(ctx, rungs, func(ctx context.Context, g Generator) (string, error) {
		out, err := g.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		if out == "" {
			return "", ErrEmptyResponse
		}
		return out, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}
	return text, nil
}

// Stream streams from the primary model. If that stream fails or ends
// before any token arrives, the remaining models are asked for a complete answer which
// is delivered as a single token. A failure after tokens were delivered is
// returned as is, wrapped in models.ErrGeneration.
func (l *Ladder) Stream(ctx context.Context, prompt string, onToken func(string) error) error {
	if len(l.rungs.Rungs) == 0 {
		return fmt.Errorf("%w: %w", models.ErrGeneration, fallback.ErrNoRungs)
	}

	primary := l.rungs.Rungs[0]
	emitted := 0
	var sinkErr error
	err := primary.Value.Stream(ctx, prompt, func(token string) error {
		if token == "" {
			return nil
		}
		emitted++
		if err := onToken(token); err != nil {
			sinkErr = err
			return err
		}
		return nil
	})
	if err == nil {
		if emitted > 0 {
			return nil
		}
		l.log.Warn("generation stream produced no tokens", "model", primary.Name)
		err = ErrEmptyResponse
	}
	if sinkErr != nil {
		return sinkErr
	}
	if emitted > 0 || ctx.Err() != nil {
		return fmt.Errorf("%w: stream interrupted: %w", models.ErrGeneration, err)
	}

	l.rungs.OnFailure(primary.Name, fmt.Errorf("stream: %w", err))
	rest := l.rungs.From(1)
	if len(rest.Rungs) == 0 {
		rest = l.rungs
	}
	text, genErr := l.generate(ctx, rest, prompt)
	if genErr != nil {
		return fmt.Errorf("stream failed: %w; %w", err, genErr)
	}
	return onToken(text)
}
