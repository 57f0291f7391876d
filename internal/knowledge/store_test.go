package knowledge

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/log"
)

// stubEmbed is a deterministic bag-of-words embedding for tests.
// Words are hashed into a fixed number of dimensions, so documents sharing
// words get higher cosine similarity. No network, no model.
func stubEmbed(_ context.Context, text string) ([]float32, error) {
	const dims = 64
	vec := make([]float32, dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%dims]++
	}
	// Guard against the all-zero vector (empty input).
	vec[0] += 0.001
	return vec, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(t.TempDir(), stubEmbed, log.NewNop())
	require.NoError(t, err)
	return store
}

func TestStore_AddAndSearch(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "doc1", Content: "cats are wonderful pets", CreateAt: time.Now()},
		{ID: "doc2", Content: "the invoice is due on friday"},
		{ID: "doc3", Content: "dogs need daily walks"},
	}
	for _, doc := range docs {
		require.NoError(t, store.Add(ctx, doc))
	}

	results, err := store.Search(ctx, "cats pets", WithTopK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1", results[0].Document.ID)
}

func TestStore_Add_EmptyContent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	err := store.Add(context.Background(), Document{ID: "empty", Content: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty content")
}

func TestStore_Search_TopKClampedToCount(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, Document{ID: "only", Content: "a single document"}))

	// Requesting more results than documents must not error.
	results, err := store.Search(ctx, "document", WithTopK(10))
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStore_Search_EmptyStore(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	results, err := store.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_MetadataRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, store.Add(ctx, Document{
		ID:      "doc1",
		Content: "quarterly report summary",
		Metadata: map[string]string{
			"source_type": SourceTypeFile,
			"file_name":   "report.md",
		},
		CreateAt: created,
	}))

	results, err := store.Search(ctx, "quarterly report", WithTopK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0].Document
	assert.Equal(t, SourceTypeFile, got.Metadata["source_type"])
	assert.Equal(t, "report.md", got.Metadata["file_name"])
	assert.True(t, got.CreateAt.Equal(created), "CreateAt should survive the round trip")
}

func TestStore_PersistenceAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir, stubEmbed, log.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, Document{ID: "doc1", Content: "persisted content"}))
	require.Equal(t, 1, store.Count())

	reopened, err := Open(dir, stubEmbed, log.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count())

	results, err := reopened.Search(ctx, "persisted", WithTopK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1", results[0].Document.ID)
}

func TestStore_Reset(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, Document{ID: "doc1", Content: "old content"}))
	require.Equal(t, 1, store.Count())

	require.NoError(t, store.Reset())
	assert.Equal(t, 0, store.Count())

	// Store remains usable after a reset.
	require.NoError(t, store.Add(ctx, Document{ID: "doc2", Content: "new content"}))
	assert.Equal(t, 1, store.Count())
}
