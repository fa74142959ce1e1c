package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"medreport-rag/internal/config"
	"medreport-rag/internal/models"
)

// ChunkRecord is one embedded chunk row in the pgvector-backed store.
type ChunkRecord struct {
	bun.BaseModel `bun:"table:report_chunks,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Collection    string    `bun:"collection,notnull"`
	ChunkIndex    int       `bun:"chunk_index,notnull"`
	Content       string    `bun:"content,notnull"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`
	Score         float64   `bun:"score,scanonly"`
}

// PGStore is the pgvector Store backend for deployments that already run
// Postgres (e.g. Supabase). Collections are rows sharing a collection name.
type PGStore struct {
	db       *bun.DB
	embedder embeddings.Embedder

	mu         sync.RWMutex
	collection string
}

// NewPGStore connects, ensures the table exists, and resumes the named
// collection if it already holds rows.
func NewPGStore(ctx context.Context, cfg *config.DatabaseConfig, collectionName string, embedder embeddings.Embedder) (*PGStore, error) {
	dsn := cfg.URL + "?sslmode=disable"
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Password)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %v", ErrUnavailable, err)
	}
	if _, err := db.NewCreateTable().Model((*ChunkRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize table: %v", ErrUnavailable, err)
	}

	s := &PGStore{db: db, embedder: embedder}
	count, err := db.NewSelect().Model((*ChunkRecord)(nil)).
		Where("collection = ?", collectionName).Count(ctx)
	if err == nil && count > 0 {
		log.Info().Str("collection", collectionName).Int("documents", count).
			Msg("Resumed existing collection")
		s.collection = collectionName
	}
	return s, nil
}

func (s *PGStore) Build(ctx context.Context, collection string, chunks []string) error {
	records, err := s.embedChunks(ctx, collection, chunks, 0)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ChunkRecord)(nil)).
			Where("collection = ?", collection).Exec(ctx); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&records).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to build collection: %v", err)
	}
	s.collection = collection
	return nil
}

func (s *PGStore) Add(ctx context.Context, chunks []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection == "" {
		return ErrNotInitialized
	}
	if len(chunks) == 0 {
		return nil
	}
	count, err := s.db.NewSelect().Model((*ChunkRecord)(nil)).
		Where("collection = ?", s.collection).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count collection: %v", err)
	}
	records, err := s.embedChunks(ctx, s.collection, chunks, count)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(&records).Exec(ctx); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

func (s *PGStore) Search(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.collection == "" {
		return nil, ErrNotInitialized
	}
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", ErrUnavailable, err)
	}

	var records []ChunkRecord
	err = s.db.NewSelect().
		Model(&records).
		Column("content", "chunk_index").
		ColumnExpr("1 - (embedding <=> ?) AS score", queryEmbedding).
		Where("collection = ?", s.collection).
		OrderExpr("embedding <=> ?, chunk_index ASC", queryEmbedding).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %v", err)
	}

	out := make([]models.ScoredChunk, 0, len(records))
	for _, r := range records {
		out = append(out, models.ScoredChunk{Content: r.Content, Score: r.Score})
	}
	return out, nil
}

func (s *PGStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection == "" {
		return nil
	}
	if _, err := s.db.NewDelete().Model((*ChunkRecord)(nil)).
		Where("collection = ?", s.collection).Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear collection: %v", err)
	}
	s.collection = ""
	return nil
}

// Close releases the database connection.
func (s *PGStore) Close() error {
	return s.db.Close()
}

func (s *PGStore) embedChunks(ctx context.Context, collection string, chunks []string, startIndex int) ([]ChunkRecord, error) {
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
	records := make([]ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = ChunkRecord{
			Collection: collection,
			ChunkIndex: startIndex + i,
			Content:    chunk,
			Embedding:  vectors[i],
		}
	}
	return records, nil
}
