package vectorstore

import (
	"context"
	"errors"

	"medreport-rag/internal/models"
)

var (
	// ErrUnavailable means the embedding or storage backend could not be
	// initialized.
	ErrUnavailable = errors.New("vector store unavailable")

	// ErrNotInitialized means no collection has been built or loaded yet.
	ErrNotInitialized = errors.New("vector store not initialized")
)

// Store persists chunk vectors under a named collection and answers top-k
// similarity queries. Build replaces the collection; Add appends to the one
// currently loaded. Mutations are atomic with respect to concurrent reads.
type Store interface {
	Build(ctx context.Context, collection string, chunks []string) error
	Add(ctx context.Context, chunks []string) error
	Search(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error)
	Clear(ctx context.Context) error
}
