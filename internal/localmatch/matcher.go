// Package localmatch is the last-resort answer path: a term-frequency
// cosine search over a small in-memory document set, with no network.
package localmatch

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"secureshield-assistant/internal/models"
)

// DefaultK is the number of matches returned when k is not positive.
const DefaultK = 3

var nonWordRe = regexp.MustCompile(`\W+`)

// Match is a document and its similarity to the query.
type Match struct {
	Document models.Document
	Score    float64
}

type termVector map[string]float64

// Matcher is safe for concurrent use.
type Matcher struct {
	mu      sync.RWMutex
	docs    []models.Document
	vectors []termVector
}

// New creates a matcher seeded with docs.
func New(docs ...models.Document) *Matcher {
	m := &Matcher{}
	m.Add(docs...)
	return m
}

// Add appends documents and returns the new document count.
func (m *Matcher) Add(docs ...models.Document) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs = append(m.docs, d)
		m.vectors = append(m.vectors, vectorize(d.Text))
	}
	return len(m.docs)
}

// Len returns the number of documents.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Search returns the k documents most similar to query, best first. It
// never fails; an empty matcher yields no matches.
func (m *Matcher) Search(query string, k int) []Match {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.docs) == 0 {
		return nil
	}
	if k <= 0 {
		k = DefaultK
	}

	q := vectorize(query)
	matches := make([]Match, len(m.docs))
	for i, d := range m.docs {
		matches[i] = Match{Document: d, Score: cosine(q, m.vectors[i])}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

// Tokens lowercases text and returns its words longer than two characters.
func Tokens(text string) []string {
	var out []string
	for _, w := range nonWordRe.Split(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

func vectorize(text string) termVector {
	v := termVector{}
	for _, w := range Tokens(text) {
		v[w]++
	}
	return v
}

func cosine(a, b termVector) float64 {
	var dot, magA, magB float64
	for term, x := range a {
		dot += x * b[term]
		magA += x * x
	}
	for _, y := range b {
		magB += y * y
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
