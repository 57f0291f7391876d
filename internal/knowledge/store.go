// Package knowledge provides the persisted vector store used for document
// retrieval. Documents are embedded once on Add and searched by cosine
// similarity. Persistence is handled by chromem-go: the collection survives
// process restarts under the configured storage directory.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

// collectionName is the single chromem collection holding indexed documents.
const collectionName = "documents"

// metadata key for document creation time, stored as RFC3339.
const metaCreatedAt = "created_at"

// Store manages knowledge documents with vector search capabilities,
// backed by a disk-persisted chromem-go database.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embed      chromem.EmbeddingFunc
	logger     *slog.Logger
}

// Open opens (or creates) a persisted store under persistDir.
// An existing collection is loaded from disk as-is; pass the same embedding
// function that produced it, or Reset before re-indexing.
func Open(persistDir string, embed chromem.EmbeddingFunc, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := chromem.NewPersistentDB(persistDir, false)
	if err != nil {
		return nil, fmt.Errorf("opening persistent store %q: %w", persistDir, err)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", collectionName, err)
	}

	return &Store{
		db:         db,
		collection: collection,
		embed:      embed,
		logger:     logger,
	}, nil
}

// Add adds a document to the store. The content is embedded with the
// configured embedding function before being persisted.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Errorf("document %q has empty content", doc.ID)
	}

	metadata := make(map[string]string, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		metadata[k] = v
	}
	if !doc.CreateAt.IsZero() {
		metadata[metaCreatedAt] = doc.CreateAt.Format(time.RFC3339)
	}

	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:       doc.ID,
		Content:  doc.Content,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("adding document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search performs semantic search and returns the most similar documents,
// ordered by similarity score.
//
//	results, err := store.Search(ctx, "billing policy", knowledge.WithTopK(4))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	// chromem rejects nResults greater than the collection size.
	n := cfg.topK
	if count := s.collection.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	rows, err := s.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		metadata := make(map[string]string, len(row.Metadata))
		var createAt time.Time
		for k, v := range row.Metadata {
			if k == metaCreatedAt {
				if ts, parseErr := time.Parse(time.RFC3339, v); parseErr == nil {
					createAt = ts
					continue
				}
			}
			metadata[k] = v
		}

		results = append(results, Result{
			Document: Document{
				ID:       row.ID,
				Content:  row.Content,
				Metadata: metadata,
				CreateAt: createAt,
			},
			Similarity: row.Similarity,
		})
	}

	return results, nil
}

// Count returns the number of documents in the store.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Reset drops the collection and recreates it empty. Used before a full
// re-index so stale documents don't survive a rebuild.
func (s *Store) Reset() error {
	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}

	collection, err := s.db.GetOrCreateCollection(collectionName, nil, s.embed)
	if err != nil {
		return fmt.Errorf("recreating collection: %w", err)
	}
	s.collection = collection

	s.logger.Debug("collection reset")
	return nil
}
