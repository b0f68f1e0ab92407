package processor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Empty(t *testing.T) {
	assert.Empty(t, Chunk("", MaxChunkSize))
	assert.Empty(t, Chunk("  \n\n \t\n  ", MaxChunkSize))
}

func TestChunk_MergesSmallParagraphs(t *testing.T) {
	text := "Auto insurance covers liability.\n\nHome insurance covers fire damage."
	chunks := Chunk(text, MaxChunkSize)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunk_SplitsOnCeiling(t *testing.T) {
	a := strings.Repeat("a", 600)
	b := strings.Repeat("b", 600)
	c := strings.Repeat("c", 300)

	chunks := Chunk(a+"\n\n"+b+"\n \n"+c, MaxChunkSize)
	require.Len(t, chunks, 2)
	assert.Equal(t, a, chunks[0])
	assert.Equal(t, b+"\n\n"+c, chunks[1])
}

func TestChunk_ExactCeilingStaysTogether(t *testing.T) {
	a := strings.Repeat("a", 499)
	b := strings.Repeat("b", 499)
	chunks := Chunk(a+"\n\n"+b, MaxChunkSize)
	require.Len(t, chunks, 1)
	assert.Equal(t, MaxChunkSize, len(chunks[0]))
}

func TestChunk_OversizedParagraphKeptWhole(t *testing.T) {
	long := strings.Repeat("x", 2500)
	chunks := Chunk("intro\n\n"+long+"\n\noutro", MaxChunkSize)
	require.Len(t, chunks, 3)
	assert.Equal(t, "intro", chunks[0])
	assert.Equal(t, long, chunks[1])
	assert.Equal(t, "outro", chunks[2])
}

func TestChunk_CountsCharactersNotBytes(t *testing.T) {
	a := strings.Repeat("é", 600)
	b := strings.Repeat("ü", 390)
	chunks := Chunk(a+"\n\n"+b, MaxChunkSize)
	assert.Len(t, chunks, 1)
}

func TestChunk_Properties(t *testing.T) {
	inputs := []string{
		"one",
		"one\n\ntwo\n\nthree",
		strings.Repeat("para of text that repeats.\n\n", 120),
		strings.Repeat("w", 1001) + "\n\n" + strings.Repeat("v", 10),
		"Welcome to SecureShield\n\nWe protect what matters most.\n\n" + strings.Repeat("Coverage details. ", 80),
	}

	for _, in := range inputs {
		trimmed := strings.TrimSpace(in)
		chunks := Chunk(in, MaxChunkSize)
		require.NotEmpty(t, chunks)

		for _, c := range chunks {
			assert.NotEmpty(t, c)
			if utf8.RuneCountInString(c) > MaxChunkSize {
				assert.NotContains(t, c, ParagraphSeparator, "only a single paragraph may exceed the ceiling")
			}
		}
		assert.Equal(t, trimmed, strings.Join(chunks, ParagraphSeparator))
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("  first \n\n\n second\n  \t\nthird\nline  ")
	assert.Equal(t, []string{"first", "second", "third\nline"}, got)
}
