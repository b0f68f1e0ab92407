// Package embedding turns text into unit-length vectors through an external
// embedding service, stepping down a ladder of models on failure.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"secureshield-assistant/internal/fallback"
	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/models"
)

// ErrEmptyVector is returned when a backend answers without values.
var ErrEmptyVector = errors.New("embedding service returned an empty vector")

// Embedder converts one text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Name identifies the backend and model, e.g. "gemini/text-embedding-004".
	Name() string
}

// Normalize returns v scaled to unit L2 length. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		norm = 1
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Ladder is an Embedder that tries each configured backend in order.
type Ladder struct {
	rungs fallback.Ladder[Embedder]
}

// NewLadder creates an embedder ladder, primary first. onFailure may be nil;
// every failed rung is logged either way.
func NewLadder(log logger.Logger, onFailure func(rung string, err error), embedders ...Embedder) *Ladder {
	if log == nil {
		log = logger.Discard()
	}
	rungs := make([]fallback.Rung[Embedder], len(embedders))
	for i, e := range embedders {
		rungs[i] = fallback.Rung[Embedder]{Name: e.Name(), Value: e}
	}
	return &Ladder{rungs: fallback.New(func(rung string, err error) {
		log.Warn("embedding model failed, trying next", "model", rung, "err", err)
		if onFailure != nil {
			onFailure(rung, err)
		}
	}, rungs...)}
}

// Name lists the ladder's models.
func (l *Ladder) Name() string {
	return fmt.Sprintf("ladder%v", l.rungs.Names())
}

// Embed returns the first non-empty vector produced by the ladder. Failure
// of every rung is reported as models.ErrEmbedding.
func (l *Ladder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := fallback.Climb(ctx, l.rungs, func(ctx context.Context, e Embedder) ([]float32, error) {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(v) == 0 {
			return nil, ErrEmptyVector
		}
		return v, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, err)
	}
	return vec, nil
}

// EmbedNormalized embeds text and normalizes the result.
func EmbedNormalized(ctx context.Context, e Embedder, text string) ([]float32, error) {
	v, err := e.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, ErrEmptyVector)
	}
	return Normalize(v), nil
}

// EmbedAll embeds and normalizes texts one at a time, in order. progress,
// when set, is called after each text.
func EmbedAll(ctx context.Context, e Embedder, texts []string, progress func(done, total int)) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		v, err := EmbedNormalized(ctx, e, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		vectors = append(vectors, v)
		if progress != nil {
			progress(i+1, len(texts))
		}
	}
	return vectors, nil
}
