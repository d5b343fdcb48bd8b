// Package vectorstore defines the vector storage interface backing the
// profile memory service, with an embedded chromem-go implementation and a
// Qdrant gRPC implementation selected by configuration.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates a connection failure to the backend.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Embedder generates vector embeddings from text. Implemented by
// embeddings.Service.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Document is a unit of content stored in the vector store.
type Document struct {
	// ID is the unique identifier. Callers should provide deterministic
	// IDs for idempotent writes.
	ID string

	// Content is the text content.
	Content string

	// Metadata holds key-value pairs usable as search filters
	// (e.g. user_id, category).
	Metadata map[string]any
}

// SearchResult is one similarity search hit.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]any
}

// Store is the interface for vector storage operations. Implementations
// must be safe for concurrent use.
type Store interface {
	// AddDocuments upserts documents and returns their IDs.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Search performs similarity search, filtered by metadata when
	// filters is non-nil. A store with no matching documents returns an
	// empty slice, not an error.
	Search(ctx context.Context, query string, k int, filters map[string]any) ([]SearchResult, error)

	// DeleteDocuments removes documents by ID. Unknown IDs are ignored.
	DeleteDocuments(ctx context.Context, ids []string) error

	// Close releases backend resources.
	Close() error
}
