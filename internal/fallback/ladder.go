// Package fallback tries an ordered list of candidate backends until one
// succeeds. Embedding and generation both use it to step from the primary
// model down to older ones.
package fallback

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoRungs is returned by Climb when the ladder is empty.
var ErrNoRungs = errors.New("fallback ladder has no rungs")

// Rung is one named candidate of a ladder.
type Rung[T any] struct {
	Name  string
	Value T
}

// Ladder is an ordered list of candidates, primary first.
type Ladder[T any] struct {
	Rungs []Rung[T]
	// OnFailure, when set, is called for every rung that fails.
	OnFailure func(rung string, err error)
}

// New builds a ladder from named candidates.
func New[T any](onFailure func(string, error), rungs ...Rung[T]) Ladder[T] {
	return Ladder[T]{Rungs: rungs, OnFailure: onFailure}
}

// Names returns the rung names in order.
func (l Ladder[T]) Names() []string {
	names := make([]string, len(l.Rungs))
	for i, r := range l.Rungs {
		names[i] = r.Name
	}
	return names
}

// From returns the ladder starting at rung i. An out-of-range i yields an
// empty ladder.
func (l Ladder[T]) From(i int) Ladder[T] {
	if i >= len(l.Rungs) {
		return Ladder[T]{OnFailure: l.OnFailure}
	}
	return Ladder[T]{Rungs: l.Rungs[i:], OnFailure: l.OnFailure}
}

// Climb calls fn on each rung in order and returns the first success.
// When every rung fails the joined failures are returned. A cancelled
// context stops the climb before the next rung.
func Climb[T, R any](ctx context.Context, l Ladder[T], fn func(context.Context, T) (R, error)) (R, error) {
	var zero R
	if len(l.Rungs) == 0 {
		return zero, ErrNoRungs
	}

	var errs []error
	for _, rung := range l.Rungs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := fn(ctx, rung.Value)
		if err == nil {
			return result, nil
		}
		err = fmt.Errorf("%s: %w", rung.Name, err)
		if l.OnFailure != nil {
			l.OnFailure(rung.Name, err)
		}
		errs = append(errs, err)
	}
	return zero, errors.Join(errs...)
}
