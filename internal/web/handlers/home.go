package handlers

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/askdocs/askdocs/internal/index"
	"github.com/askdocs/askdocs/internal/log"
	"github.com/askdocs/askdocs/internal/session"
)

//go:embed templates/chat.html
var chatHTML string

var chatTmpl = template.Must(template.New("chat").Parse(chatHTML))

// EngineProvider yields the current query engine, rebuilding the index
// when the data folder has changed. A nil engine with a nil error means
// there is nothing to query yet. Satisfied by *index.Manager.
type EngineProvider interface {
	Engine(ctx context.Context) (index.Engine, error)
}

// Home serves the chat page: GET renders the session transcript,
// POST answers a question and redirects back to GET.
type Home struct {
	logger      log.Logger
	engines     EngineProvider
	transcripts *session.Store
	sessions    *Sessions
	noData      string
}

// HomeConfig contains dependencies for the chat page handler.
type HomeConfig struct {
	Logger      log.Logger
	Engines     EngineProvider
	Transcripts *session.Store
	Sessions    *Sessions
	DataDir     string
}

// NewHome creates the chat page handler.
func NewHome(cfg HomeConfig) (*Home, error) {
	if cfg.Engines == nil {
		return nil, errors.New("engine provider is required")
	}
	if cfg.Transcripts == nil {
		return nil, errors.New("transcript store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Home{
		logger:      logger,
		engines:     cfg.Engines,
		transcripts: cfg.Transcripts,
		sessions:    cfg.Sessions,
		noData:      noDataMessage(cfg.DataDir),
	}, nil
}

// RegisterRoutes registers the chat page routes on the given mux.
func (h *Home) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Show)
	mux.HandleFunc("POST /{$}", h.Ask)
}

// chatData is the template payload for the chat page.
type chatData struct {
	Entries []session.Entry
}

// Show renders the chat page with the current session's transcript.
// Visitors without a session see an empty transcript; no cookie is set.
func (h *Home) Show(w http.ResponseWriter, r *http.Request) {
	var entries []session.Entry
	if id, err := h.sessions.ID(r); err == nil {
		entries = h.transcripts.Transcript(id)
	}

	// Render to a buffer first so a template error never produces a
	// half-written page.
	var buf bytes.Buffer
	if err := chatTmpl.Execute(&buf, chatData{Entries: entries}); err != nil {
		h.logger.Error("chat page render failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// Ask answers a submitted question, appends it to the session transcript,
// and redirects back to the chat page so a browser refresh never resubmits
// the form. Blank questions redirect without touching the transcript.
func (h *Home) Ask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	engine, err := h.engines.Engine(r.Context())
	if err != nil {
		h.logger.Error("index unavailable", "error", err)
		http.Error(w, "index build failed", http.StatusInternalServerError)
		return
	}

	answer := h.noData
	if engine != nil {
		answer = engine.Answer(r.Context(), question)
	}

	id := h.sessions.GetOrCreate(w, r)
	h.transcripts.Append(id, question, answer)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// noDataMessage builds the answer shown when the data folder is empty,
// naming the folder users should drop files into.
func noDataMessage(dataDir string) string {
	name := filepath.Base(filepath.Clean(dataDir))
	if name == "." || name == string(filepath.Separator) {
		name = "data"
	}
	return fmt.Sprintf("No data found in /%s folder. Add files and refresh.", name)
}
