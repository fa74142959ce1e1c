package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"medreport-rag/internal/embedding"
	"medreport-rag/internal/helper"
	"medreport-rag/internal/models"
)

// ChromemStore is the default Store backend, an embedded chromem-go database
// persisted under a directory so collections survive restarts.
type ChromemStore struct {
	db       *chromem.DB
	embedder embeddings.Embedder

	mu         sync.RWMutex
	collection *chromem.Collection
}

// NewChromemStore opens (or creates) the database at dbPath and resumes the
// named collection if it already exists on disk. With inMemory set, nothing
// is persisted; that mode is used by tests.
func NewChromemStore(dbPath, collectionName string, inMemory bool, embedder embeddings.Embedder) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, false)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open database: %v", ErrUnavailable, err)
		}
	}

	s := &ChromemStore{db: db, embedder: embedder}
	if c := db.GetCollection(collectionName, embedding.ChromemFunc(embedder)); c != nil {
		log.Info().Str("collection", collectionName).Int("documents", c.Count()).
			Msg("Resumed existing collection")
		s.collection = c
	}
	return s, nil
}

// Build embeds the chunks and stores them under collection, replacing any
// existing collection of that name. An empty chunk sequence yields an empty,
// queryable collection.
func (s *ChromemStore) Build(ctx context.Context, collection string, chunks []string) error {
	docs, err := s.embedChunks(ctx, chunks, 0)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	c, err := s.db.CreateCollection(collection, nil, embedding.ChromemFunc(s.embedder))
	if err != nil {
		return fmt.Errorf("%w: failed to create collection: %v", ErrUnavailable, err)
	}
	if len(docs) > 0 {
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("failed to add documents: %v", err)
		}
	}
	s.collection = c
	return nil
}

// Add embeds the chunks and appends them to the loaded collection.
func (s *ChromemStore) Add(ctx context.Context, chunks []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection == nil {
		return ErrNotInitialized
	}
	if len(chunks) == 0 {
		return nil
	}
	docs, err := s.embedChunks(ctx, chunks, s.collection.Count())
	if err != nil {
		return err
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search returns up to topK chunks ordered by descending similarity. Exact
// score ties keep their original insertion order.
func (s *ChromemStore) Search(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.collection == nil {
		return nil, ErrNotInitialized
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %v", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return chunkIndex(results[i].Metadata) < chunkIndex(results[j].Metadata)
	})

	out := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		out = append(out, models.ScoredChunk{Content: r.Content, Score: float64(r.Similarity)})
	}
	return out, nil
}

// Clear deletes the loaded collection's data. Calling it with nothing loaded
// is a no-op.
func (s *ChromemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection == nil {
		return nil
	}
	if err := s.db.DeleteCollection(s.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	s.collection = nil
	return nil
}

// embedChunks embeds all chunks in one batch and wraps them as chromem
// documents, recording each chunk's insertion index for tie-breaking.
func (s *ChromemStore) embedChunks(ctx context.Context, chunks []string, startIndex int) ([]chromem.Document, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed chunks: %v", ErrUnavailable, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", ErrUnavailable, len(vectors), len(chunks))
	}

	batchID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		idx := startIndex + i
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s-%06d", batchID, idx),
			Content:   chunk,
			Embedding: vectors[i],
			Metadata:  map[string]string{"chunk_index": strconv.Itoa(idx)},
		}
	}
	return docs, nil
}

func chunkIndex(metadata map[string]string) int {
	n, err := strconv.Atoi(metadata["chunk_index"])
	if err != nil {
		return 0
	}
	return n
}
