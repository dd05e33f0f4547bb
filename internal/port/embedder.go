package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex stores category exemplar embeddings and answers
// nearest-neighbor queries. Upsert is idempotent per category+exemplar id
// and the index grows append-only as categories are discovered.
type VectorIndex interface {
	// Upsert adds or replaces index entries.
	Upsert(entries []IndexEntry) error

	// Query returns up to k matches sorted by descending similarity.
	// Ties are broken by earliest category rank.
	Query(vector []float32, k int) ([]IndexMatch, error)

	// Has reports whether an entry exists for category+exemplar id.
	Has(category, exemplarID string) bool

	// Entries returns all entries stored under a category.
	Entries(category string) ([]IndexEntry, error)

	// Rewrite moves every entry of oldCategory under newCategory,
	// used when consolidation merges two categories.
	Rewrite(oldCategory, newCategory string, newRank int) error

	// Remove deletes all entries of a category.
	Remove(category string) error

	// Count returns the number of stored entries.
	Count() int
}

// IndexEntry is one exemplar embedding stored under a category.
type IndexEntry struct {
	Category   string
	Rank       int
	ExemplarID string
	Vector     []float32
}

// IndexMatch is a query result.
type IndexMatch struct {
	Category   string
	ExemplarID string
	Similarity float64
}
