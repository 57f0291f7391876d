package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/askdocs/askdocs/internal/answer"
	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/index"
	"github.com/askdocs/askdocs/internal/knowledge"
	"github.com/askdocs/askdocs/internal/log"
	"github.com/askdocs/askdocs/internal/session"
	"github.com/askdocs/askdocs/internal/web"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Both folders must exist before the watcher and the vector store
	// attach to them.
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.PersistDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating persist dir: %w", err)
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	store, err := knowledge.Open(cfg.PersistDir, knowledge.NewEmbeddingFunc(embedder), logger)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge store: %w", err)
	}
	a.Knowledge = store

	engine, err := answer.New(answer.EngineConfig{
		Genkit:    g,
		Store:     store,
		ModelName: cfg.FullModelName(),
		TopK:      cfg.TopK,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating query engine: %w", err)
	}

	indexer := index.NewIndexer(store, cfg.DataDir, nil, logger)

	mgr, err := index.NewManager(index.ManagerConfig{
		DataDir:    cfg.DataDir,
		PersistDir: cfg.PersistDir,
		MarkerPath: cfg.MarkerPath(),
		Store:      store,
		Builder:    indexer,
		NewEngine:  func() index.Engine { return engine },
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating index manager: %w", err)
	}
	a.Manager = mgr

	a.Sessions = session.NewStore(session.StoreConfig{
		TTL:        time.Duration(cfg.SessionTTLHours) * time.Hour,
		MaxEntries: cfg.MaxTranscriptEntries,
		Logger:     logger,
	})

	srv, err := web.NewServer(web.ServerConfig{
		Logger:        logger,
		Engines:       mgr,
		Transcripts:   a.Sessions,
		Store:         store,
		DataDir:       cfg.DataDir,
		SessionTTL:    time.Duration(cfg.SessionTTLHours) * time.Hour,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		IsDev:         !cfg.SecureCookies,
	})
	if err != nil {
		return nil, fmt.Errorf("creating web server: %w", err)
	}
	a.Server = srv

	appCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if cfg.WatchData {
		watcher, err := index.NewWatcher(cfg.DataDir, mgr, logger)
		if err != nil {
			return nil, fmt.Errorf("watching data dir: %w", err)
		}
		a.watcher = watcher
		go watcher.Run(appCtx)
	}

	return a, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports ollama (default) and gemini providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderGemini:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)

	default: // ollama
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		// Register the embedder used for indexing and retrieval
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// Each provider registers embedders differently:
//   - ollama: registered in provideGenkit, keyed by server address
//   - gemini: GoogleAIEmbedder(g, modelName)
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderGemini:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default: // ollama
		return ollama.Embedder(g, cfg.OllamaHost)
	}
}
