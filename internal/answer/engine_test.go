package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/knowledge"
	"github.com/askdocs/askdocs/internal/log"
)

// stubSearcher implements Searcher.
type stubSearcher struct {
	results []knowledge.Result
	err     error

	lastQuery string
}

func (s *stubSearcher) Search(_ context.Context, query string, _ ...knowledge.SearchOption) ([]knowledge.Result, error) {
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func newTestEngine(t *testing.T, store Searcher) *Engine {
	t.Helper()

	engine, err := New(EngineConfig{
		Store:     store,
		ModelName: "ollama/gemma3:1b",
		TopK:      4,
		Logger:    log.NewNop(),
	})
	require.NoError(t, err)
	return engine
}

func TestEngine_Answer_PassesRetrievedDocs(t *testing.T) {
	t.Parallel()

	store := &stubSearcher{
		results: []knowledge.Result{
			{Document: knowledge.Document{ID: "doc1", Content: "refunds within 30 days", Metadata: map[string]string{"file_name": "policy.txt"}}, Similarity: 0.9},
			{Document: knowledge.Document{ID: "doc2", Content: "shipping takes a week"}, Similarity: 0.4},
		},
	}
	engine := newTestEngine(t, store)

	var gotQuestion string
	var gotDocs []*ai.Document
	engine.generate = func(_ context.Context, question string, docs []*ai.Document) (string, error) {
		gotQuestion = question
		gotDocs = docs
		return "You can get a refund within 30 days.", nil
	}

	answer := engine.Answer(context.Background(), "what is the refund policy?")

	assert.Equal(t, "You can get a refund within 30 days.", answer)
	assert.Equal(t, "what is the refund policy?", gotQuestion)
	assert.Equal(t, "what is the refund policy?", store.lastQuery)
	require.Len(t, gotDocs, 2)
	assert.Equal(t, "policy.txt", gotDocs[0].Metadata["file_name"])
}

func TestEngine_Answer_RetrievalFailureBecomesErrorString(t *testing.T) {
	t.Parallel()

	store := &stubSearcher{err: errors.New("store unavailable")}
	engine := newTestEngine(t, store)

	answer := engine.Answer(context.Background(), "anything")

	assert.Equal(t, "Query error: store unavailable", answer)
}

func TestEngine_Answer_GenerationFailureBecomesErrorString(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &stubSearcher{})
	engine.generate = func(context.Context, string, []*ai.Document) (string, error) {
		return "", errors.New("model timeout")
	}

	answer := engine.Answer(context.Background(), "anything")

	assert.Equal(t, "Query error: model timeout", answer)
}

func TestEngine_Answer_NoResultsStillGenerates(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &stubSearcher{})
	var gotDocs []*ai.Document
	engine.generate = func(_ context.Context, _ string, docs []*ai.Document) (string, error) {
		gotDocs = docs
		return "The documents don't cover that.", nil
	}

	answer := engine.Answer(context.Background(), "unrelated question")

	assert.Empty(t, gotDocs)
	assert.Equal(t, "The documents don't cover that.", answer)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  EngineConfig
	}{
		{"missing store", EngineConfig{ModelName: "m", TopK: 4}},
		{"missing model", EngineConfig{Store: &stubSearcher{}, TopK: 4}},
		{"bad topK", EngineConfig{Store: &stubSearcher{}, ModelName: "m", TopK: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg)
			require.Error(t, err)
		})
	}
}
