package citation

import (
	"strings"
	"testing"

	"secureshield-assistant/internal/models"

	"github.com/stretchr/testify/assert"
)

var docs = []models.Document{
	{Text: "Home", Source: "Navigation"},
	{Text: "Get a quote today (link: #quote)", Source: "Link"},
	{Text: "Auto Insurance protects you and your vehicle on the road with comprehensive coverage options.", Source: "H2"},
	{Text: "Auto Insurance protects you and your vehicle on the road, duplicate section.", Source: "Paragraph"},
	{Text: "Read about our claims process (link: /claims)", Source: ""},
	{Text: "Our partner network is listed elsewhere (LINK: https://partners.example.com )", Source: "Link"},
}

func TestResolve_FirstMatchWins(t *testing.T) {
	r := NewResolver("http://localhost:8888/")
	chunk := "Auto Insurance protects you and your vehicle on the road with comprehensive coverage options.\n\nMore text."

	src, ok := r.Resolve(chunk, docs)
	assert.True(t, ok)
	assert.Equal(t, Source{Title: "H2"}, src)
}

func TestResolve_ChunkInsideDocument(t *testing.T) {
	r := NewResolver("http://localhost:8888")
	src, ok := r.Resolve("Get a quote today", docs)
	assert.True(t, ok)
	assert.Equal(t, "Link", src.Title)
	assert.Equal(t, "http://localhost:8888/#quote", src.Link)
}

func TestResolve_DefaultTitleAndPathLink(t *testing.T) {
	r := NewResolver("http://localhost:8888")
	src, ok := r.Resolve("Intro.\n\nRead about our claims process (link: /claims)", docs)
	assert.True(t, ok)
	assert.Equal(t, Source{Title: "Section", Link: "http://localhost:8888/claims"}, src)
}

func TestResolve_ShortDocumentsIgnored(t *testing.T) {
	r := NewResolver("http://localhost:8888")
	_, ok := r.Resolve("Home", docs)
	assert.False(t, ok)
}

func TestResolve_NoMatch(t *testing.T) {
	r := NewResolver("http://localhost:8888")
	_, ok := r.Resolve("Completely unrelated content about gardening.", docs)
	assert.False(t, ok)

	_, ok = r.Resolve("anything", nil)
	assert.False(t, ok)
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver("http://localhost:8888")
	chunk := strings.Repeat("Get a quote today (link: #quote) ", 3)
	first, ok1 := r.Resolve(chunk, docs)
	second, ok2 := r.Resolve(chunk, docs)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestExtractLink(t *testing.T) {
	r := NewResolver("http://localhost:8888")
	tests := []struct {
		text string
		want string
	}{
		{"Contact (link: #contact)", "http://localhost:8888/#contact"},
		{"Claims (link:   /claims )", "http://localhost:8888/claims"},
		{"Partners (LINK: https://partners.example.com )", "https://partners.example.com"},
		{"No marker here", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.ExtractLink(tt.text), tt.text)
	}
}

func TestEnrich(t *testing.T) {
	r := NewResolver("http://localhost:8888")
	hits := []models.Hit{
		{Index: 2, Score: 0.9, Text: "Get a quote today"},
		{Index: 0, Score: 0.1, Text: "gardening"},
	}

	got := r.Enrich(hits, docs)
	assert.Equal(t, []models.Citation{
		{Index: 2, Score: 0.9, Text: "Get a quote today", Title: "Link", Link: "http://localhost:8888/#quote"},
		{Index: 0, Score: 0.1, Text: "gardening"},
	}, got)
}
