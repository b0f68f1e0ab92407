// Package app assembles the assistant from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"secureshield-assistant/internal/config"
	"secureshield-assistant/internal/database"
	"secureshield-assistant/internal/embedding"
	"secureshield-assistant/internal/llm"
	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/rag"
	"secureshield-assistant/internal/server"
	"secureshield-assistant/internal/vectorindex"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

var errMissingAPIKey = errors.New("gemini.api_key (or GOOGLE_API_KEY) is required for the gemini provider")

// App holds the wired pipeline and what must be released on shutdown.
type App struct {
	Config  *config.Config
	Log     logger.Logger
	Metrics *server.Metrics
	Service *rag.Service
	closers []func()
}

// New wires embedders, generators, the snapshot store and the service.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	metrics := server.NewMetrics()

	ladder, err := NewEmbedder(cfg, log, metrics.Fallback("embedding"))
	if err != nil {
		return nil, err
	}
	var emb embedding.Embedder = ladder
	if cfg.Embedding.CacheSize > 0 {
		if emb, err = embedding.NewCached(ladder, cfg.Embedding.CacheSize); err != nil {
			return nil, err
		}
	}
	gen, err := NewGenerator(cfg, log, metrics.Fallback("generation"))
	if err != nil {
		return nil, err
	}
	store, closeStore, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc := rag.NewService(emb, gen, store, rag.Options{
		SourcePath:    cfg.Data.ScrapedText,
		DocumentsPath: cfg.Data.ScrapedJSON,
		LockPath:      cfg.Data.LockPath(),
		DefaultK:      cfg.Index.DefaultK,
		Origin:        cfg.Site.Origin,
	}, log)

	a := &App{Config: cfg, Log: log, Metrics: metrics, Service: svc}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}
	return a, nil
}

// Close releases the store connection, if any.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

// NewEmbedder builds the embedding ladder from embedding.models.
func NewEmbedder(cfg *config.Config, log logger.Logger, onFailure func(string, error)) (*embedding.Ladder, error) {
	var rungs []embedding.Embedder
	for _, model := range cfg.Embedding.Models {
		switch cfg.Embedding.Provider {
		case ProviderGemini:
			if cfg.Gemini.APIKey == "" {
				return nil, errMissingAPIKey
			}
			rungs = append(rungs, embedding.NewGeminiEmbedder(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, model, cfg.Gemini.Timeout))
		case ProviderOllama:
			e, err := embedding.NewOllamaEmbedder(cfg.Ollama.Host, model)
			if err != nil {
				return nil, err
			}
			e.MaxRetries = cfg.Ollama.MaxRetries
			if cfg.Ollama.RetryBackoff > 0 {
				e.RetryBackoff = cfg.Ollama.RetryBackoff
			}
			rungs = append(rungs, e)
		default:
			return nil, fmt.Errorf("unknown embedding.provider %q", cfg.Embedding.Provider)
		}
	}
	return embedding.NewLadder(log, onFailure, rungs...), nil
}

// NewGenerator builds the generation ladder from generation.models.
func NewGenerator(cfg *config.Config, log logger.Logger, onFailure func(string, error)) (*llm.Ladder, error) {
	var rungs []llm.Generator
	for _, model := range cfg.Generation.Models {
		switch cfg.Generation.Provider {
		case ProviderGemini:
			if cfg.Gemini.APIKey == "" {
				return nil, errMissingAPIKey
			}
			g := llm.NewGeminiLLM(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, model, cfg.Gemini.Timeout)
			g.Temperature = cfg.Generation.Temperature
			g.MaxTokens = cfg.Generation.MaxTokens
			rungs = append(rungs, g)
		case ProviderOllama:
			o, err := llm.NewOllamaLLM(cfg.Ollama.Host, model)
			if err != nil {
				return nil, err
			}
			o.Temperature = cfg.Generation.Temperature
			o.MaxTokens = cfg.Generation.MaxTokens
			rungs = append(rungs, o)
		default:
			return nil, fmt.Errorf("unknown generation.provider %q", cfg.Generation.Provider)
		}
	}
	return llm.NewLadder(log, onFailure, rungs...), nil
}

// NewStore opens the configured snapshot store. The returned func, when not
// nil, closes its connection.
func NewStore(ctx context.Context, cfg *config.Config) (vectorindex.Store, func(), error) {
	switch cfg.Index.Store {
	case "postgres":
		db, err := database.NewDB(ctx, cfg.Index.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Initialize(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return database.NewSnapshotStore(db, cfg.Index.SnapshotName), db.Close, nil
	default:
		return vectorindex.NewFileStore(cfg.Data.IndexPath, cfg.Data.MetaPath), nil, nil
	}
}
