package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"secureshield-assistant/internal/models"
	"secureshield-assistant/internal/sse"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct {
	mu        sync.Mutex
	meta      models.IndexMeta
	ready     bool
	buildErr  error
	buildPath string
	hits      []models.Hit
	searchErr error
	answer    *models.Answer
	answerErr error
	events    []models.StreamEvent
	docs      []models.Document
	gotK      int
	gotQuery  string
	streams   int
}

func (f *fakeAssistant) Build(_ context.Context, path string) (models.IndexMeta, error) {
	f.buildPath = path
	if f.buildErr != nil {
		return models.IndexMeta{}, f.buildErr
	}
	f.ready = true
	return f.meta, nil
}

func (f *fakeAssistant) Status() (models.IndexMeta, bool) { return f.meta, f.ready }

func (f *fakeAssistant) Search(_ context.Context, query string, k int) ([]models.Hit, error) {
	f.gotQuery, f.gotK = query, k
	return f.hits, f.searchErr
}

func (f *fakeAssistant) Answer(_ context.Context, query string, k int) (*models.Answer, error) {
	f.gotQuery, f.gotK = query, k
	return f.answer, f.answerErr
}

func (f *fakeAssistant) AnswerStream(_ context.Context, query string, k int) <-chan models.StreamEvent {
	f.mu.Lock()
	f.gotQuery, f.gotK = query, k
	f.streams++
	f.mu.Unlock()
	ch := make(chan models.StreamEvent, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch
}

func (f *fakeAssistant) Documents() []models.Document { return f.docs }

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	s := New(&fakeAssistant{}, nil, nil, nil)
	w := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestBuildIndex(t *testing.T) {
	t.Run("Should build with an empty body", func(t *testing.T) {
		a := &fakeAssistant{meta: models.IndexMeta{Dimension: 768, Count: 12}}
		s := New(a, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/index/build", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"dimension":768,"count":12}`, w.Body.String())
		assert.Empty(t, a.buildPath)
	})

	t.Run("Should pass an explicit source path", func(t *testing.T) {
		a := &fakeAssistant{meta: models.IndexMeta{Dimension: 3, Count: 1}}
		s := New(a, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/index/build", `{"path":"data/custom.txt"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "data/custom.txt", a.buildPath)
	})

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing source", fmt.Errorf("%w: data/x.txt", models.ErrSourceNotFound), http.StatusNotFound},
		{"empty source", models.ErrNoChunks, http.StatusBadRequest},
		{"concurrent build", models.ErrBuildInProgress, http.StatusConflict},
		{"embedding outage", fmt.Errorf("%w: all models failed", models.ErrEmbedding), http.StatusBadGateway},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run("Should map "+tc.name, func(t *testing.T) {
			s := New(&fakeAssistant{buildErr: tc.err}, nil, nil, nil)
			w := do(t, s, http.MethodPost, "/api/index/build", "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.err.Error(), decode(t, w)["error"])
		})
	}

	t.Run("Should reject malformed JSON", func(t *testing.T) {
		s := New(&fakeAssistant{}, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/index/build", `{"path":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIndexStatus(t *testing.T) {
	a := &fakeAssistant{}
	s := New(a, nil, nil, nil)
	w := do(t, s, http.MethodGet, "/api/index/status", "")
	assert.JSONEq(t, `{"ready":false,"dimension":0,"count":0}`, w.Body.String())

	a.meta, a.ready = models.IndexMeta{Dimension: 4, Count: 9}, true
	w = do(t, s, http.MethodGet, "/api/index/status", "")
	assert.JSONEq(t, `{"ready":true,"dimension":4,"count":9}`, w.Body.String())
}

func TestSearch(t *testing.T) {
	t.Run("Should accept q and k", func(t *testing.T) {
		a := &fakeAssistant{hits: []models.Hit{{Index: 2, Score: 0.5, Text: "Fire damage is covered."}}}
		s := New(a, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/search", `{"q":"fire","k":2}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"hits":[{"index":2,"score":0.5,"text":"Fire damage is covered."}]}`, w.Body.String())
		assert.Equal(t, "fire", a.gotQuery)
		assert.Equal(t, 2, a.gotK)
	})

	t.Run("Should return an empty hit list", func(t *testing.T) {
		s := New(&fakeAssistant{}, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/search", `{"query":"anything"}`)
		assert.JSONEq(t, `{"hits":[]}`, w.Body.String())
	})

	t.Run("Should reject a missing query", func(t *testing.T) {
		s := New(&fakeAssistant{}, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/search", `{"k":3}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should report an unbuilt index", func(t *testing.T) {
		s := New(&fakeAssistant{searchErr: models.ErrNotReady}, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/search", `{"q":"fire"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, models.ErrNotReady.Error(), decode(t, w)["error"])
	})
}

func TestAnswer(t *testing.T) {
	citations := []models.Citation{{Index: 0, Score: 0.9, Text: "Auto Insurance covers collisions.", Title: "Auto Insurance", Link: "https://example.com/#auto"}}

	t.Run("Should return answer and citations", func(t *testing.T) {
		a := &fakeAssistant{answer: &models.Answer{Answer: "Collisions are covered [#0].", Citations: citations}}
		s := New(a, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/answer", `{"q":"collision?","k":4}`)
		require.Equal(t, http.StatusOK, w.Code)
		out := decode(t, w)
		assert.Equal(t, "Collisions are covered [#0].", out["answer"])
		assert.Len(t, out["citations"], 1)
	})

	t.Run("Should keep citations when generation fails", func(t *testing.T) {
		a := &fakeAssistant{
			answer:    &models.Answer{Citations: citations},
			answerErr: fmt.Errorf("%w: quota exceeded", models.ErrGeneration),
		}
		s := New(a, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/answer", `{"q":"collision?"}`)
		require.Equal(t, http.StatusBadGateway, w.Code)
		out := decode(t, w)
		assert.Contains(t, out["error"], "quota exceeded")
		assert.Len(t, out["citations"], 1)
	})

	t.Run("Should map retrieval failures", func(t *testing.T) {
		s := New(&fakeAssistant{answerErr: models.ErrNotReady}, nil, nil, nil)
		w := do(t, s, http.MethodPost, "/api/answer", `{"q":"collision?"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestAnswerStream(t *testing.T) {
	a := &fakeAssistant{events: []models.StreamEvent{
		{Kind: models.EventStatus, UsingServerContext: true},
		{Kind: models.EventContext, Citations: []models.Citation{{Index: 1, Score: 0.7, Text: "Home"}}},
		{Kind: models.EventToken, Text: "Hello"},
		{Kind: models.EventToken, Text: " world"},
		{Kind: models.EventDone},
	}}
	metrics := NewMetrics()
	ts := httptest.NewServer(New(a, metrics, nil, nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/answer/stream?q=home%20cover&k=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	dec := sse.NewDecoder(resp.Body)
	var names []string
	var text strings.Builder
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, ev.Name)
		if ev.Name == "token" {
			var tok struct {
				Text string `json:"text"`
			}
			require.NoError(t, json.Unmarshal([]byte(ev.Data), &tok))
			text.WriteString(tok.Text)
		}
		if ev.Name == "status" {
			assert.JSONEq(t, `{"usingServerContext":true}`, ev.Data)
		}
	}
	assert.Equal(t, []string{"status", "context", "token", "token", "done"}, names)
	assert.Equal(t, "Hello world", text.String())
	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, "home cover", a.gotQuery)
	assert.Equal(t, 3, a.gotK)
}

func TestAnswerStreamError(t *testing.T) {
	a := &fakeAssistant{events: []models.StreamEvent{{Kind: models.EventError, Message: models.ErrNotReady.Error()}}}
	ts := httptest.NewServer(New(a, nil, nil, nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/answer/stream?q=x")
	require.NoError(t, err)
	defer resp.Body.Close()

	ev, err := sse.NewDecoder(resp.Body).Next()
	require.NoError(t, err)
	assert.Equal(t, "error", ev.Name)
	assert.JSONEq(t, fmt.Sprintf(`{"message":%q}`, models.ErrNotReady.Error()), ev.Data)
}

func TestAnswerStreamRequiresQuery(t *testing.T) {
	for _, path := range []string{"/api/answer/stream", "/api/answer/stream?q=%20%20", "/api/answer/stream?k=3"} {
		t.Run("Should reject "+path+" before streaming", func(t *testing.T) {
			a := &fakeAssistant{events: []models.StreamEvent{{Kind: models.EventDone}}}
			w := do(t, New(a, nil, nil, nil), http.MethodGet, path, "")

			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			assert.Contains(t, decode(t, w)["error"], "query is required")
			assert.Zero(t, a.streams)
		})
	}
}

func TestScrapeContent(t *testing.T) {
	fallback := []models.Document{{Text: "SecureShield offers insurance.", Source: "General"}}

	t.Run("Should serve scraped documents", func(t *testing.T) {
		a := &fakeAssistant{docs: []models.Document{{Text: "Auto plans", Source: "H2"}}}
		w := do(t, New(a, nil, nil, fallback), http.MethodGet, "/api/scrape-content", "")
		assert.JSONEq(t, `[{"text":"Auto plans","source":"H2"}]`, w.Body.String())
	})

	t.Run("Should fall back to sample documents", func(t *testing.T) {
		w := do(t, New(&fakeAssistant{}, nil, nil, fallback), http.MethodGet, "/api/scrape-content", "")
		assert.JSONEq(t, `[{"text":"SecureShield offers insurance.","source":"General"}]`, w.Body.String())
	})
}

func TestMetricsEndpoint(t *testing.T) {
	a := &fakeAssistant{meta: models.IndexMeta{Dimension: 2, Count: 5}}
	metrics := NewMetrics()
	s := New(a, metrics, nil, nil)
	metrics.Fallback("embedding")("gemini/text-embedding-004", errors.New("boom"))

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/index/build", "").Code)
	w := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "siteassist_index_chunks 5")
	assert.Contains(t, body, `siteassist_model_fallbacks_total{model="gemini/text-embedding-004",stage="embedding"} 1`)
	assert.Contains(t, body, `siteassist_http_requests_total{method="POST",route="/api/index/build",status="200"} 1`)
	assert.Contains(t, body, "siteassist_index_build_duration_seconds_count 1")
}

func TestCORSPreflight(t *testing.T) {
	s := New(&fakeAssistant{}, nil, nil, nil)
	w := do(t, s, http.MethodOptions, "/api/answer", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
