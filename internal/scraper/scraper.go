// Package scraper turns a page of the marketing site into an ordered list
// of labeled text passages.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/models"
	"secureshield-assistant/internal/processor"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	minSectionLen   = 50
	minParagraphLen = 30
	minListItemLen  = 10
	minLinkLen      = 10
)

// Scraper fetches and extracts site pages.
type Scraper struct {
	client *resty.Client
	log    logger.Logger
}

// New creates a scraper with the given request timeout.
func New(log logger.Logger, timeout time.Duration) *Scraper {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/html").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	return &Scraper{client: client, log: log}
}

// Scrape fetches url and extracts its documents. Failures are logged and
// reported as an empty list.
func (s *Scraper) Scrape(ctx context.Context, url string) []models.Document {
	s.log.Info("scraping content", "url", url)

	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		s.log.Error("scrape request failed", "url", url, "err", err)
		return []models.Document{}
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		s.log.Error("scrape request failed", "url", url, "status", resp.StatusCode())
		return []models.Document{}
	}

	docs, err := Parse(body)
	if err != nil {
		s.log.Error("failed to parse page", "url", url, "err", err)
		return []models.Document{}
	}

	s.log.Info("extracted documents", "url", url, "count", len(docs))
	return docs
}

// Parse extracts documents from an HTML page in this order: title, meta
// description, header, navigation, h1-h3 headings, sections, paragraphs,
// list items, links and footer.
func Parse(r io.Reader) ([]models.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	strip(root)

	docs := []models.Document{}
	add := func(text, source string) {
		if text = cleanText(text); text != "" {
			docs = append(docs, models.Document{Text: text, Source: source})
		}
	}

	add(joinedText(root, atom.Title), "Title")
	if desc := metaDescription(root); desc != "" {
		add(desc, "Meta Description")
	}
	add(joinedText(root, atom.Header), "Header")
	add(joinedText(root, atom.Nav), "Navigation")

	for _, h := range findAll(root, isHeading) {
		add(textOf(h), strings.ToUpper(h.Data))
	}

	for i, sec := range findAll(root, isSection) {
		text := strings.TrimSpace(textOf(sec))
		if len([]rune(text)) <= minSectionLen {
			continue
		}
		heading := fmt.Sprintf("Section %d", i+1)
		if hs := findAll(sec, isHeading); len(hs) > 0 {
			heading = strings.TrimSpace(textOf(hs[0]))
		}
		add(text, heading)
	}

	for _, p := range findAll(root, is(atom.P)) {
		if text := strings.TrimSpace(textOf(p)); len([]rune(text)) > minParagraphLen {
			add(text, "Paragraph")
		}
	}

	for _, li := range findAll(root, isListItem) {
		if text := strings.TrimSpace(textOf(li)); len([]rune(text)) > minListItemLen {
			add(text, "List Item")
		}
	}

	for _, a := range findAll(root, is(atom.A)) {
		text := strings.TrimSpace(textOf(a))
		if len([]rune(text)) <= minLinkLen {
			continue
		}
		if href := attr(a, "href"); href != "" {
			text += " (link: " + href + ")"
		}
		add(text, "Link")
	}

	add(joinedText(root, atom.Footer), "Footer")
	return docs, nil
}

// Save writes docs as the build source (texts separated by blank lines)
// and as the JSON list used for citations.
func Save(textPath, jsonPath string, docs []models.Document) error {
	for _, p := range []string{textPath, jsonPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(p), err)
		}
	}

	if err := os.WriteFile(textPath, []byte(processor.JoinDocuments(docs)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", textPath, err)
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}
	return nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
