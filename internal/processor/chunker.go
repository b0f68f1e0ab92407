package processor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxChunkSize is the soft ceiling, in characters, for a chunk built from
// several paragraphs. A single paragraph longer than this stays whole.
const MaxChunkSize = 1000

// ParagraphSeparator joins paragraphs inside a chunk and documents inside a
// scraped text file.
const ParagraphSeparator = "\n\n"

var paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits text on blank lines and drops empty units.
func SplitParagraphs(text string) []string {
	parts := paragraphSplitRe.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			paragraphs = append(paragraphs, part)
		}
	}
	return paragraphs
}

// Chunk greedily packs paragraphs into chunks of at most maxSize characters.
// A buffer is flushed only when appending the next paragraph would exceed the
// ceiling and the buffer already holds something. Empty input yields nil.
func Chunk(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = MaxChunkSize
	}

	var chunks []string
	var buffer strings.Builder
	bufferLen := 0

	for _, p := range SplitParagraphs(text) {
		pLen := utf8.RuneCountInString(p)
		sepLen := len(ParagraphSeparator)
		if bufferLen > 0 && bufferLen+sepLen+pLen > maxSize {
			chunks = append(chunks, buffer.String())
			buffer.Reset()
			bufferLen = 0
		}
		if bufferLen > 0 {
			buffer.WriteString(ParagraphSeparator)
			bufferLen += sepLen
		}
		buffer.WriteString(p)
		bufferLen += pLen
	}

	if bufferLen > 0 {
		chunks = append(chunks, buffer.String())
	}
	return chunks
}
