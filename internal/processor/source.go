package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"secureshield-assistant/internal/models"
)

// LoadText reads a build source and returns its raw text with documents
// separated by blank lines. The format is chosen by extension: .json is a
// scraped Document list, .pdf is extracted with the PDF reader, anything
// else is read as plain text.
func LoadText(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", models.ErrSourceNotFound, path)
		}
		return "", fmt.Errorf("failed to stat source %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		docs, err := LoadDocuments(path)
		if err != nil {
			return "", err
		}
		return JoinDocuments(docs), nil
	case ".pdf":
		text, err := ExtractPDFText(path)
		if err != nil {
			return "", fmt.Errorf("failed to extract %s: %w", path, err)
		}
		return text, nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read source %s: %w", path, err)
		}
		return string(data), nil
	}
}

// LoadDocuments reads a scraped Document list written by the scraper.
func LoadDocuments(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to read documents %s: %w", path, err)
	}

	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse documents %s: %w", path, err)
	}
	return docs, nil
}

// JoinDocuments concatenates document texts with blank lines, the layout
// the chunker splits on.
func JoinDocuments(docs []models.Document) string {
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		if t := strings.TrimSpace(d.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, ParagraphSeparator)
}

// ChunkFile loads a source and chunks it. Zero chunks is reported as
// models.ErrNoChunks.
func ChunkFile(path string, maxSize int) ([]string, error) {
	text, err := LoadText(path)
	if err != nil {
		return nil, err
	}
	chunks := Chunk(text, maxSize)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoChunks, path)
	}
	return chunks, nil
}
