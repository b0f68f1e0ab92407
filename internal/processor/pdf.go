// internal/processor/pdf.go
package processor

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	inlineSpaceRe = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankLinesRe  = regexp.MustCompile(`\n\s*\n+`)
)

// ExtractPDFText extracts plain text from a PDF file
func ExtractPDFText(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract plain text: %w", err)
	}

	_, err = buf.ReadFrom(b)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}

	return normalizeWhitespace(buf.String()), nil
}

// normalizeWhitespace collapses runs of spaces inside lines and keeps
// paragraphs separated by exactly one blank line
func normalizeWhitespace(text string) string {
	text = inlineSpaceRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, ParagraphSeparator)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
