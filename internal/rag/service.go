// Package rag runs the retrieval pipeline: it builds and loads the vector
// index, answers searches against it and grounds generated answers in the
// retrieved chunks.
package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"secureshield-assistant/internal/citation"
	"secureshield-assistant/internal/embedding"
	"secureshield-assistant/internal/llm"
	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/models"
	"secureshield-assistant/internal/processor"
	"secureshield-assistant/internal/vectorindex"

	"github.com/gofrs/flock"
)

// DefaultK is used when a request does not ask for a positive k.
const DefaultK = 4

const progressEvery = 10

// Options locate the build inputs and tune retrieval.
type Options struct {
	// SourcePath is the default build source, usually the scraped text.
	SourcePath string
	// DocumentsPath is the scraped JSON list used to resolve citations.
	DocumentsPath string
	// LockPath serializes builds across processes. Empty disables it.
	LockPath  string
	DefaultK  int
	ChunkSize int
	Origin    string
}

// Service owns the live index handle. Searches read whichever index is
// current; a rebuild swaps the handle only after the new index is saved.
type Service struct {
	embedder  embedding.Embedder
	generator llm.Generator
	store     vectorindex.Store
	resolver  *citation.Resolver
	opts      Options
	log       logger.Logger

	index   atomic.Pointer[vectorindex.Index]
	buildMu sync.Mutex
}

// NewService wires the pipeline.
func NewService(e embedding.Embedder, g llm.Generator, store vectorindex.Store, opts Options, log logger.Logger) *Service {
	if opts.DefaultK <= 0 {
		opts.DefaultK = DefaultK
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = processor.MaxChunkSize
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		embedder:  e,
		generator: g,
		store:     store,
		resolver:  citation.NewResolver(opts.Origin),
		opts:      opts,
		log:       log,
	}
}

// Load reads the persisted index. It reports false, not an error, when the
// snapshot is missing or unusable so the caller knows to build.
func (s *Service) Load(ctx context.Context) bool {
	idx, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, models.ErrSnapshotMissing) {
			s.log.Info("no saved index, build required", "err", err)
		} else {
			s.log.Warn("saved index unusable, build required", "err", err)
		}
		return false
	}
	s.index.Store(idx)
	meta := idx.Meta()
	s.log.Info("index loaded", "dimension", meta.Dimension, "count", meta.Count)
	return true
}

// Status returns the current index shape and whether one is loaded.
func (s *Service) Status() (models.IndexMeta, bool) {
	idx := s.index.Load()
	if idx == nil {
		return models.IndexMeta{}, false
	}
	return idx.Meta(), true
}

// Build chunks the source at path (the configured source when empty),
// embeds every chunk, saves the index and makes it current. Only one build
// runs at a time; a concurrent request gets models.ErrBuildInProgress.
func (s *Service) Build(ctx context.Context, path string) (models.IndexMeta, error) {
	if path == "" {
		path = s.opts.SourcePath
	}

	if !s.buildMu.TryLock() {
		return models.IndexMeta{}, models.ErrBuildInProgress
	}
	defer s.buildMu.Unlock()

	unlock, err := s.lockBuild()
	if err != nil {
		return models.IndexMeta{}, err
	}
	defer unlock()

	start := time.Now()
	chunks, err := processor.ChunkFile(path, s.opts.ChunkSize)
	if err != nil {
		return models.IndexMeta{}, err
	}
	s.log.Info("building index", "source", path, "chunks", len(chunks))

	idx, err := vectorindex.Build(ctx, s.embedder, chunks, func(done, total int) {
		if done%progressEvery == 0 || done == total {
			s.log.Info("embedded chunk", "done", done, "total", total)
		}
	})
	if err != nil {
		return models.IndexMeta{}, err
	}

	if err := s.store.Save(ctx, idx); err != nil {
		return models.IndexMeta{}, fmt.Errorf("failed to save index: %w", err)
	}
	s.index.Store(idx)

	meta := idx.Meta()
	s.log.Info("index built", "dimension", meta.Dimension, "count", meta.Count, "took", time.Since(start))
	return meta, nil
}

func (s *Service) lockBuild() (func(), error) {
	if s.opts.LockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.opts.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock dir: %w", err)
	}
	fl := flock.New(s.opts.LockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire build lock: %w", err)
	}
	if !locked {
		return nil, models.ErrBuildInProgress
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.log.Warn("failed to release build lock", "err", err)
		}
	}, nil
}

// Search embeds query and returns up to k hits, best first.
func (s *Service) Search(ctx context.Context, query string, k int) ([]models.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", models.ErrInvalidInput)
	}
	idx := s.index.Load()
	if idx == nil {
		return nil, models.ErrNotReady
	}
	if k <= 0 {
		k = s.opts.DefaultK
	}

	q, err := embedding.EmbedNormalized(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Search(q, k)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return hits, nil
}

// Citations resolves hits against the scraped documents.
func (s *Service) Citations(hits []models.Hit) []models.Citation {
	return s.resolver.Enrich(hits, s.Documents())
}

// Documents returns the saved scrape, or nil when there is none.
func (s *Service) Documents() []models.Document {
	if s.opts.DocumentsPath == "" {
		return nil
	}
	docs, err := processor.LoadDocuments(s.opts.DocumentsPath)
	if err != nil {
		if !errors.Is(err, models.ErrSourceNotFound) {
			s.log.Warn("failed to load scraped documents", "err", err)
		}
		return nil
	}
	return docs
}

// Answer retrieves context for query and generates a grounded answer. When
// generation fails the returned Answer still carries the citations, along
// with an error wrapping models.ErrGeneration.
func (s *Service) Answer(ctx context.Context, query string, k int) (*models.Answer, error) {
	hits, err := s.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	answer := &models.Answer{Citations: s.Citations(hits)}

	text, err := s.generator.Generate(ctx, llm.GeneratePrompt(query, hits))
	if err != nil {
		if !errors.Is(err, models.ErrGeneration) {
			err = fmt.Errorf("%w: %w", models.ErrGeneration, err)
		}
		return answer, err
	}
	answer.Answer = text
	return answer, nil
}
