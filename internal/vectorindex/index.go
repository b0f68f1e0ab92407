package vectorindex

import (
	"fmt"

	"secureshield-assistant/internal/models"
)

// Index pairs a Flat index with the chunk texts it was built from. The
// text at position i belongs to the vector with label i.
type Index struct {
	flat  *Flat
	texts []string
}

// New checks that texts lines up with flat and returns the pair.
func New(flat *Flat, texts []string) (*Index, error) {
	if flat.Len() != len(texts) {
		return nil, fmt.Errorf("index holds %d vectors but %d chunk texts", flat.Len(), len(texts))
	}
	return &Index{flat: flat, texts: texts}, nil
}

// Meta returns the index dimension and count.
func (idx *Index) Meta() models.IndexMeta {
	return models.IndexMeta{Dimension: idx.flat.Dim(), Count: len(idx.texts)}
}

// Texts returns the chunk texts in label order.
func (idx *Index) Texts() []string {
	return idx.texts
}

// Flat returns the underlying vector index.
func (idx *Index) Flat() *Flat {
	return idx.flat
}

// Search returns up to k hits for a normalized query vector, best first.
// Labels without a chunk text are skipped.
func (idx *Index) Search(q []float32, k int) ([]models.Hit, error) {
	neighbors, err := idx.flat.Search(q, k)
	if err != nil {
		return nil, err
	}

	hits := make([]models.Hit, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Label < 0 || n.Label >= len(idx.texts) {
			continue
		}
		hits = append(hits, models.Hit{Index: n.Label, Score: n.Score, Text: idx.texts[n.Label]})
	}
	return hits, nil
}
