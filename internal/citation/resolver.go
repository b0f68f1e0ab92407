// Package citation maps retrieved chunks back to the scraped site sections
// they came from.
package citation

import (
	"regexp"
	"strings"

	"secureshield-assistant/internal/models"
)

const (
	// prefixLen is how many leading characters are compared between a
	// chunk and a document.
	prefixLen = 60
	// minDocLen skips nav fragments and other short documents.
	minDocLen = 20
	// defaultTitle labels a matching document that has no source.
	defaultTitle = "Section"
)

var linkRe = regexp.MustCompile(`(?i)\(link:\s*([^)]+)\)`)

// Source is the resolved attribution of a chunk.
type Source struct {
	Title string
	Link  string
}

// Resolver matches chunk text against the scraped documents in scrape order.
type Resolver struct {
	// Origin is prepended to relative links, e.g. "http://localhost:8888".
	Origin string
}

// NewResolver creates a resolver for the site at origin.
func NewResolver(origin string) *Resolver {
	return &Resolver{Origin: strings.TrimRight(origin, "/")}
}

// Resolve returns the first document whose text contains the chunk's
// opening characters, or whose opening characters the chunk contains.
func (r *Resolver) Resolve(chunk string, docs []models.Document) (Source, bool) {
	chunkPrefix := prefix(chunk)
	for _, doc := range docs {
		t := strings.TrimSpace(doc.Text)
		if len([]rune(t)) < minDocLen {
			continue
		}
		if strings.Contains(chunk, prefix(t)) || strings.Contains(t, chunkPrefix) {
			title := doc.Source
			if title == "" {
				title = defaultTitle
			}
			return Source{Title: title, Link: r.ExtractLink(t)}, true
		}
	}
	return Source{}, false
}

// Enrich turns hits into citations, attaching title and link where a
// document matches.
func (r *Resolver) Enrich(hits []models.Hit, docs []models.Document) []models.Citation {
	citations := make([]models.Citation, len(hits))
	for i, h := range hits {
		c := models.Citation{Index: h.Index, Score: h.Score, Text: h.Text}
		if src, ok := r.Resolve(h.Text, docs); ok {
			c.Title, c.Link = src.Title, src.Link
		}
		citations[i] = c
	}
	return citations
}

// ExtractLink returns the href of a "(link: ...)" marker, made absolute
// against the origin when it starts with '#' or '/'.
func (r *Resolver) ExtractLink(text string) string {
	m := linkRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	href := strings.TrimSpace(m[1])
	switch {
	case strings.HasPrefix(href, "#"):
		return r.Origin + "/" + href
	case strings.HasPrefix(href, "/"):
		return r.Origin + href
	default:
		return href
	}
}

func prefix(s string) string {
	runes := []rune(s)
	if len(runes) > prefixLen {
		return string(runes[:prefixLen])
	}
	return s
}
