package vectorindex

import (
	"context"
	"fmt"

	"secureshield-assistant/internal/embedding"
	"secureshield-assistant/internal/models"
)

// Build embeds chunks one at a time, in order, and returns a fresh index
// sized to the first vector's dimension. progress may be nil.
func Build(ctx context.Context, e embedding.Embedder, chunks []string, progress func(done, total int)) (*Index, error) {
	if len(chunks) == 0 {
		return nil, models.ErrNoChunks
	}

	vectors, err := embedding.EmbedAll(ctx, e, chunks, progress)
	if err != nil {
		return nil, err
	}

	flat := NewFlat(len(vectors[0]))
	for i, v := range vectors {
		if err := flat.Add(v); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	texts := make([]string, len(chunks))
	copy(texts, chunks)
	return New(flat, texts)
}
