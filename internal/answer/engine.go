// Package answer turns retrieved document fragments into an answer. It is
// the boundary where model failures stop: whatever goes wrong while
// answering becomes a user-visible error string, never a propagated error,
// so one bad query can't take the page down.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/askdocs/askdocs/internal/knowledge"
)

// Searcher is the retrieval side of the knowledge store.
// Defined here, by the consumer, so tests can stub retrieval.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// systemPrompt asks for compact answers grounded in the retrieved context.
const systemPrompt = `You answer questions using only the provided context documents.
Be concise: a short paragraph at most.
If the context does not contain the answer, say that the documents don't cover it.`

// generateFunc produces the model answer for a question given retrieved
// documents. A seam for tests; production uses Engine.generateWithModel.
type generateFunc func(ctx context.Context, question string, docs []*ai.Document) (string, error)

// Engine answers natural-language questions by retrieving relevant fragments
// and delegating synthesis to the configured model.
type Engine struct {
	g         *genkit.Genkit
	store     Searcher
	modelName string
	topK      int
	logger    *slog.Logger
	generate  generateFunc
}

// EngineConfig contains the dependencies for New.
type EngineConfig struct {
	Genkit    *genkit.Genkit
	Store     Searcher
	ModelName string // provider-qualified, e.g. "ollama/gemma3:1b"
	TopK      int
	Logger    *slog.Logger
}

// New creates an answer engine.
func New(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.TopK < 1 {
		return nil, fmt.Errorf("topK must be at least 1, got %d", cfg.TopK)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		g:         cfg.Genkit,
		store:     cfg.Store,
		modelName: cfg.ModelName,
		topK:      cfg.TopK,
		logger:    logger,
	}
	e.generate = e.generateWithModel
	return e, nil
}

// Answer produces a textual answer for a non-empty question. Retrieval or
// generation failures are converted into a user-visible error string; the
// caller renders it like any other answer.
func (e *Engine) Answer(ctx context.Context, question string) string {
	results, err := e.store.Search(ctx, question, knowledge.WithTopK(e.topK))
	if err != nil {
		e.logger.Error("retrieval failed", "error", err)
		return queryError(err)
	}

	docs := make([]*ai.Document, len(results))
	for i, result := range results {
		metadata := map[string]any{
			"similarity": result.Similarity,
		}
		if name, ok := result.Document.Metadata["file_name"]; ok {
			metadata["file_name"] = name
		}
		docs[i] = ai.DocumentFromText(result.Document.Content, metadata)
	}

	text, err := e.generate(ctx, question, docs)
	if err != nil {
		e.logger.Error("answer generation failed", "error", err, "question_length", len(question))
		return queryError(err)
	}

	e.logger.Debug("answered question",
		"retrieved", len(docs),
		"answer_length", len(text),
	)
	return text
}

// generateWithModel calls the model through Genkit with the retrieved
// fragments attached as grounding documents.
func (e *Engine) generateWithModel(ctx context.Context, question string, docs []*ai.Document) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(e.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(question),
	}
	if len(docs) > 0 {
		opts = append(opts, ai.WithDocs(docs...))
	}

	resp, err := genkit.Generate(ctx, e.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}
	return text, nil
}

// queryError formats a failure as the transcript-visible answer string.
func queryError(err error) string {
	return fmt.Sprintf("Query error: %v", err)
}
