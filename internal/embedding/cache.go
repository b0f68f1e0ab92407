package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached remembers recent embeddings so repeated questions skip the
// backend. Only successful, non-empty vectors are stored.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps e with an LRU cache of size entries.
func NewCached(e Embedder, size int) (*Cached, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedder %q: cache size must be greater than zero", e.Name())
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: init cache: %w", e.Name(), err)
	}
	return &Cached{inner: e, cache: cache}, nil
}

// Name returns the wrapped embedder's name.
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Embed returns a copy of the cached vector or asks the wrapped embedder.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		return slices.Clone(v), nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) > 0 {
		c.cache.Add(key, slices.Clone(v))
	}
	return v, nil
}

// Len reports how many vectors are cached.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
