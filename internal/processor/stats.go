package processor

import (
	"sort"
	"unicode/utf8"

	"secureshield-assistant/internal/models"
)

// ChunkStats summarizes a chunked corpus.
type ChunkStats struct {
	Chunks    int
	AvgLength float64
	MaxLength int
	// Oversized counts chunks longer than the chunk size, which only happens
	// for single paragraphs that could not be split.
	Oversized int
}

// Stats computes ChunkStats with lengths counted in characters.
func Stats(chunks []string, maxSize int) ChunkStats {
	s := ChunkStats{Chunks: len(chunks)}
	if len(chunks) == 0 {
		return s
	}
	total := 0
	for _, c := range chunks {
		n := utf8.RuneCountInString(c)
		total += n
		if n > s.MaxLength {
			s.MaxLength = n
		}
		if n > maxSize {
			s.Oversized++
		}
	}
	s.AvgLength = float64(total) / float64(len(chunks))
	return s
}

// SourceCount is the number of documents carrying one source label.
type SourceCount struct {
	Source string
	Count  int
}

// CountSources tallies documents per source, most frequent first and then
// by name.
func CountSources(docs []models.Document) []SourceCount {
	counts := map[string]int{}
	for _, d := range docs {
		counts[d.Source]++
	}
	out := make([]SourceCount, 0, len(counts))
	for src, n := range counts {
		out = append(out, SourceCount{Source: src, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	return out
}
