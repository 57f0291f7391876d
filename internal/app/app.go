// Package app wires the application together: model provider, knowledge
// store, index manager, session store, and the web server.
package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/index"
	"github.com/askdocs/askdocs/internal/knowledge"
	"github.com/askdocs/askdocs/internal/log"
	"github.com/askdocs/askdocs/internal/session"
	"github.com/askdocs/askdocs/internal/web"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	Knowledge *knowledge.Store
	Manager   *index.Manager
	Sessions  *session.Store
	Server    *web.Server

	watcher *index.Watcher
	cancel  context.CancelFunc
}

// Close releases all resources. Safe to call after a partial Setup failure.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down")
	}

	if a.cancel != nil {
		a.cancel()
	}

	var firstErr error
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	return firstErr
}
