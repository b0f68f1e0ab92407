// Package server is the assistant's HTTP surface: index build and status,
// search, JSON and streamed answers, site documents and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Assistant is the retrieval pipeline the handlers drive.
type Assistant interface {
	Build(ctx context.Context, path string) (models.IndexMeta, error)
	Status() (models.IndexMeta, bool)
	Search(ctx context.Context, query string, k int) ([]models.Hit, error)
	Answer(ctx context.Context, query string, k int) (*models.Answer, error)
	AnswerStream(ctx context.Context, query string, k int) <-chan models.StreamEvent
	Documents() []models.Document
}

// Server routes HTTP requests to an Assistant.
type Server struct {
	assistant Assistant
	metrics   *Metrics
	log       logger.Logger
	router    *gin.Engine
	// fallbackDocs is served by /api/scrape-content when nothing was scraped.
	fallbackDocs []models.Document
}

// New builds the router. metrics may be nil.
func New(a Assistant, metrics *Metrics, log logger.Logger, fallbackDocs []models.Document) *Server {
	if log == nil {
		log = logger.Discard()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	s := &Server{
		assistant:    a,
		metrics:      metrics,
		log:          log,
		fallbackDocs: fallbackDocs,
	}
	if meta, ok := a.Status(); ok {
		metrics.SetIndexChunks(meta.Count)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(s.log), CORSMiddleware(), s.metrics.Middleware())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.POST("/index/build", s.buildIndex)
	api.GET("/index/status", s.indexStatus)
	api.POST("/search", s.search)
	api.POST("/answer", s.answer)
	api.GET("/answer/stream", s.answerStream)
	api.GET("/scrape-content", s.documents)
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
