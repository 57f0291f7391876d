package knowledge

import "time"

// Source type constants for knowledge documents.
const (
	// SourceTypeFile represents indexed file content.
	SourceTypeFile = "file"
)

// Document represents a knowledge document.
// Metadata must be map[string]string to comply with chromem-go requirements.
type Document struct {
	ID       string            // Unique identifier
	Content  string            // Document text content
	Metadata map[string]string // Optional metadata (source, type, etc.)
	CreateAt time.Time         // Creation timestamp
}

// Result represents a single search result with similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity score (0-1)
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK int
}

// WithTopK sets the maximum number of results to return.
// Default is 5 if not specified.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK: 5,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
