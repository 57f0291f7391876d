package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/index"
	"github.com/askdocs/askdocs/internal/log"
	"github.com/askdocs/askdocs/internal/session"
	"github.com/askdocs/askdocs/internal/web"
	"github.com/askdocs/askdocs/internal/web/handlers"
)

// echoEngine answers with a canned string.
type echoEngine struct{ answer string }

func (e *echoEngine) Answer(context.Context, string) string { return e.answer }

// staticProvider returns a fixed engine.
type staticProvider struct{ engine index.Engine }

func (p *staticProvider) Engine(context.Context) (index.Engine, error) { return p.engine, nil }

// memStore and noopBuilder let a real index.Manager run against a temp
// folder without an embedder.
type memStore struct{ count int }

func (s *memStore) Count() int   { return s.count }
func (s *memStore) Reset() error { s.count = 0; return nil }

type noopBuilder struct{ store *memStore }

func (b *noopBuilder) IndexFolder(context.Context) (*index.IndexResult, error) {
	b.store.count = 1
	return &index.IndexResult{FilesAdded: 1}, nil
}

func newTestServer(t *testing.T, cfg web.ServerConfig) *web.Server {
	t.Helper()
	if cfg.Transcripts == nil {
		cfg.Transcripts = session.NewStore(session.StoreConfig{Logger: log.NewNop()})
		t.Cleanup(cfg.Transcripts.Close)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	srv, err := web.NewServer(cfg)
	require.NoError(t, err)
	return srv
}

func postQuestion(srv http.Handler, question string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	form := url.Values{"question": {question}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func getPage(srv http.Handler, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// TestServer_EmptyFolderFlow walks the whole front door with a real index
// manager over an empty document folder: the first page is empty, a question
// redirects, and the refreshed page explains that the folder has no files.
func TestServer_EmptyFolderFlow(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o750))
	persistDir := filepath.Join(t.TempDir(), "storage")

	store := &memStore{}
	mgr, err := index.NewManager(index.ManagerConfig{
		DataDir:    dataDir,
		PersistDir: persistDir,
		MarkerPath: filepath.Join(persistDir, ".last_built"),
		Store:      store,
		Builder:    &noopBuilder{store: store},
		NewEngine:  func() index.Engine { return &echoEngine{answer: "from index"} },
		Logger:     log.NewNop(),
	})
	require.NoError(t, err)

	srv := newTestServer(t, web.ServerConfig{
		Engines: mgr,
		DataDir: dataDir,
		IsDev:   true,
	})

	first := getPage(srv, nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.NotContains(t, first.Body.String(), "No data found")

	redirect := postQuestion(srv, "hello", nil)
	require.Equal(t, http.StatusSeeOther, redirect.Code)
	require.Equal(t, "/", redirect.Header().Get("Location"))

	page := getPage(srv, redirect.Result().Cookies())
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "hello")
	assert.Contains(t, page.Body.String(), "No data found in /data folder. Add files and refresh.")
}

// TestServer_AnswersOnceDataExists exercises the same stack after a file
// lands in the folder: the manager builds and the engine answer shows up.
func TestServer_AnswersOnceDataExists(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "notes.txt"), []byte("content"), 0o600))
	persistDir := filepath.Join(t.TempDir(), "storage")

	store := &memStore{}
	mgr, err := index.NewManager(index.ManagerConfig{
		DataDir:    dataDir,
		PersistDir: persistDir,
		MarkerPath: filepath.Join(persistDir, ".last_built"),
		Store:      store,
		Builder:    &noopBuilder{store: store},
		NewEngine:  func() index.Engine { return &echoEngine{answer: "the answer"} },
		Logger:     log.NewNop(),
	})
	require.NoError(t, err)

	srv := newTestServer(t, web.ServerConfig{Engines: mgr, DataDir: dataDir, IsDev: true})

	redirect := postQuestion(srv, "what is in my notes?", nil)
	require.Equal(t, http.StatusSeeOther, redirect.Code)

	page := getPage(srv, redirect.Result().Cookies())
	assert.Contains(t, page.Body.String(), "the answer")
}

func TestServer_SecurityHeaders(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, web.ServerConfig{Engines: &staticProvider{}})

	rec := getPage(srv, nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Referrer-Policy"))
}

func TestServer_RateLimitsPerIP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, web.ServerConfig{
		Engines:       &staticProvider{engine: &echoEngine{answer: "ok"}},
		RatePerSecond: 0.01,
		RateBurst:     1,
	})

	first := getPage(srv, nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := getPage(srv, nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	// Probe endpoints bypass the limiter.
	probe := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, probe)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_UnknownRouteIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, web.ServerConfig{Engines: &staticProvider{}})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	panics := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := web.RecoveryMiddleware(log.NewNop())(panics)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})
	handler := web.LoggingMiddleware(log.NewNop())(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

var _ handlers.EngineProvider = (*index.Manager)(nil)
