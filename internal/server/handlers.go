package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/models"

	"github.com/gin-gonic/gin"
)

type buildRequest struct {
	Path string `json:"path"`
}

// queryRequest accepts the query as "query" or, as the site widget sends
// it, "q".
type queryRequest struct {
	Query string `json:"query"`
	Q     string `json:"q"`
	K     int    `json:"k"`
}

func (r queryRequest) text() string {
	if r.Query != "" {
		return r.Query
	}
	return r.Q
}

type errorResponse struct {
	Error     string            `json:"error"`
	Citations []models.Citation `json:"citations,omitempty"`
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrNoChunks):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBuildInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrEmbedding), errors.Is(err, models.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) buildIndex(c *gin.Context) {
	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.fail(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	start := time.Now()
	meta, err := s.assistant.Build(c.Request.Context(), req.Path)
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("index build failed", "err", err)
		s.fail(c, err)
		return
	}
	s.metrics.observeBuild(time.Since(start))
	s.metrics.SetIndexChunks(meta.Count)
	c.JSON(http.StatusOK, meta)
}

func (s *Server) indexStatus(c *gin.Context) {
	meta, ready := s.assistant.Status()
	c.JSON(http.StatusOK, gin.H{"ready": ready, "dimension": meta.Dimension, "count": meta.Count})
}

func (s *Server) bindQuery(c *gin.Context) (queryRequest, bool) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return req, false
	}
	if req.text() == "" {
		s.fail(c, fmt.Errorf("%w: query is required", models.ErrInvalidInput))
		return req, false
	}
	return req, true
}

func (s *Server) search(c *gin.Context) {
	req, ok := s.bindQuery(c)
	if !ok {
		return
	}
	hits, err := s.assistant.Search(c.Request.Context(), req.text(), req.K)
	if err != nil {
		s.fail(c, err)
		return
	}
	if hits == nil {
		hits = []models.Hit{}
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}

func (s *Server) answer(c *gin.Context) {
	req, ok := s.bindQuery(c)
	if !ok {
		return
	}
	ans, err := s.assistant.Answer(c.Request.Context(), req.text(), req.K)
	if err != nil {
		if ans != nil && errors.Is(err, models.ErrGeneration) {
			logger.FromContext(c.Request.Context()).Warn("generation failed after retrieval", "err", err)
			_ = c.Error(err)
			c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), Citations: ans.Citations})
			return
		}
		s.fail(c, err)
		return
	}
	if ans.Citations == nil {
		ans.Citations = []models.Citation{}
	}
	c.JSON(http.StatusOK, ans)
}

func (s *Server) answerStream(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		query = c.Query("query")
	}
	if strings.TrimSpace(query) == "" {
		s.fail(c, fmt.Errorf("%w: query is required", models.ErrInvalidInput))
		return
	}
	k, _ := strconv.Atoi(c.Query("k"))

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	events := s.assistant.AnswerStream(c.Request.Context(), query, k)
	c.Stream(func(io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		s.metrics.countEvent(string(ev.Kind))
		c.SSEvent(string(ev.Kind), ev.Payload())
		return ev.Kind != models.EventDone && ev.Kind != models.EventError
	})
}

func (s *Server) documents(c *gin.Context) {
	docs := s.assistant.Documents()
	if len(docs) == 0 {
		docs = s.fallbackDocs
	}
	if docs == nil {
		docs = []models.Document{}
	}
	c.JSON(http.StatusOK, docs)
}
