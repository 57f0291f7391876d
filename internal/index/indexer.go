package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/askdocs/askdocs/internal/knowledge"
)

// IndexerStore defines the storage operations needed by Indexer.
// The interface is defined by the consumer so the indexer can be tested
// against a mock instead of a real vector store.
type IndexerStore interface {
	// Add adds a document to the store.
	Add(ctx context.Context, doc knowledge.Document) error
}

// defaultSupportedExtensions are the file types indexed by default.
var defaultSupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".rst":  true,
	".html": true,
	".csv":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".xml":  true,
}

// MaxFileSize is the largest file the indexer will embed. Larger files would
// be truncated by the embedding model's token limit, making their tail
// unretrievable, so they are skipped instead.
const MaxFileSize = 256 * 1024

// IndexResult represents the result of an indexing run.
type IndexResult struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	TotalSize    int64
	Duration     time.Duration
}

// Indexer loads the files of the document folder into the knowledge store.
type Indexer struct {
	store               IndexerStore
	dataDir             string
	supportedExtensions map[string]bool
	logger              *slog.Logger
}

// NewIndexer creates an indexer over dataDir writing into store.
//
// extensions: optional list of supported file extensions (e.g. [".txt", ".md"]).
// If empty, defaults are used.
func NewIndexer(store IndexerStore, dataDir string, extensions []string, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}

	extMap := make(map[string]bool, len(extensions))
	if len(extensions) > 0 {
		for _, ext := range extensions {
			extMap[strings.ToLower(ext)] = true
		}
	} else {
		// Copy the defaults so instances never share a map.
		for k, v := range defaultSupportedExtensions {
			extMap[k] = v
		}
	}

	return &Indexer{
		store:               store,
		dataDir:             dataDir,
		supportedExtensions: extMap,
		logger:              logger,
	}
}

// IndexFolder reads every supported file directly inside the document folder
// and adds it to the store. A file that fails to read or embed is counted and
// skipped; the run continues. A missing folder is an error here — callers
// check staleness first and never rebuild from an absent folder.
func (idx *Indexer) IndexFolder(ctx context.Context) (*IndexResult, error) {
	startTime := time.Now()
	result := &IndexResult{}

	absDir, err := filepath.Abs(idx.dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	// os.Root confines reads to the data directory, so a symlink inside it
	// cannot pull in files from elsewhere.
	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("opening data directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !idx.supportedExtensions[ext] {
			result.FilesSkipped++
			continue
		}

		info, err := entry.Info()
		if err != nil {
			result.FilesFailed++
			continue
		}
		if info.Size() > MaxFileSize {
			idx.logger.Warn("skipping oversized file", "file", name, "size", info.Size())
			result.FilesSkipped++
			continue
		}

		content, err := root.ReadFile(name)
		if err != nil {
			idx.logger.Warn("failed to read file", "file", name, "error", err)
			result.FilesFailed++
			continue
		}
		if len(strings.TrimSpace(string(content))) == 0 {
			result.FilesSkipped++
			continue
		}

		absPath := filepath.Join(absDir, name)
		doc := knowledge.Document{
			ID:      generateDocID(absPath),
			Content: string(content),
			Metadata: map[string]string{
				"source_type": knowledge.SourceTypeFile,
				"file_path":   absPath,
				"file_name":   name,
				"file_ext":    ext,
				"file_size":   fmt.Sprintf("%d", info.Size()),
			},
			CreateAt: time.Now(),
		}

		if err := idx.store.Add(ctx, doc); err != nil {
			idx.logger.Warn("failed to index file", "file", name, "error", err)
			result.FilesFailed++
			continue
		}

		result.FilesAdded++
		result.TotalSize += info.Size()
	}

	result.Duration = time.Since(startTime)
	idx.logger.Info("indexed document folder",
		"dir", absDir,
		"added", result.FilesAdded,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"duration", result.Duration,
	)
	return result, nil
}

// generateDocID generates a stable document ID from the absolute file path.
func generateDocID(absPath string) string {
	hash := sha256.Sum256([]byte(absPath))
	return "file_" + hex.EncodeToString(hash[:16])
}
