package rag

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"medreport-rag/internal/chunker"
	"medreport-rag/internal/llm"
	"medreport-rag/internal/models"
	"medreport-rag/internal/vectorstore"
)

// Generator is the slice of the generation engine the coordinator needs.
type Generator interface {
	GenerateSummary(ctx context.Context, text string, opts llm.GenerateOptions) (string, error)
	Analyze(ctx context.Context, text, question string) (string, error)
}

// RAG coordinates ingestion (chunk, embed, index) and retrieval-augmented
// generation over one collection.
//
// Ingest and IngestBatch both replace the collection; merging into an
// existing collection happens only through the explicit AddDocument path.
type RAG struct {
	store      vectorstore.Store
	engine     Generator
	splitter   *chunker.Splitter
	collection string
	topK       int
}

func New(store vectorstore.Store, engine Generator, splitter *chunker.Splitter, collection string, topK int) *RAG {
	if collection == "" {
		collection = models.DefaultCollection
	}
	if topK <= 0 {
		topK = 5
	}
	return &RAG{
		store:      store,
		engine:     engine,
		splitter:   splitter,
		collection: collection,
		topK:       topK,
	}
}

// Ingest chunks a document and builds the collection from it, replacing any
// previous content.
func (r *RAG) Ingest(ctx context.Context, text string) error {
	return r.IngestBatch(ctx, []string{text})
}

// IngestBatch chunks every document and indexes all chunks as one flattened
// sequence, preserving document order.
func (r *RAG) IngestBatch(ctx context.Context, texts []string) error {
	var chunks []string
	for _, text := range texts {
		chunks = append(chunks, r.splitter.Split(text)...)
	}
	log.Info().Int("documents", len(texts)).Int("chunks", len(chunks)).
		Str("collection", r.collection).Msg("Indexing documents")
	return r.store.Build(ctx, r.collection, chunks)
}

// AddDocument chunks a document and appends its chunks to the loaded
// collection. A document that yields no chunks is a no-op.
func (r *RAG) AddDocument(ctx context.Context, text string) error {
	chunks := r.splitter.Split(text)
	if len(chunks) == 0 {
		return nil
	}
	log.Info().Int("chunks", len(chunks)).Str("collection", r.collection).
		Msg("Adding document to collection")
	return r.store.Add(ctx, chunks)
}

// Summarize retrieves the chunks most relevant to query and generates a
// summary grounded on them.
func (r *RAG) Summarize(ctx context.Context, query string, topK int) (string, error) {
	_, context, err := r.retrieve(ctx, query, topK)
	if err != nil {
		return "", err
	}
	return r.engine.GenerateSummary(ctx, context, llm.GenerateOptions{})
}

// Answer retrieves the chunks most relevant to question, generates an
// answer grounded on them, and packages the retrieval evidence.
func (r *RAG) Answer(ctx context.Context, question string, topK int) (*models.Answer, error) {
	results, context, err := r.retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	answer, err := r.engine.Analyze(ctx, context, question)
	if err != nil {
		return nil, err
	}

	chunks := make([]string, len(results))
	for i, res := range results {
		chunks[i] = res.Content
	}
	return &models.Answer{
		Question:       question,
		Answer:         answer,
		RelevantChunks: chunks,
		NumChunksUsed:  len(chunks),
	}, nil
}

// Clear drops the collection's persisted data.
func (r *RAG) Clear(ctx context.Context) error {
	return r.store.Clear(ctx)
}

func (r *RAG) retrieve(ctx context.Context, query string, topK int) ([]models.ScoredChunk, string, error) {
	if topK <= 0 {
		topK = r.topK
	}
	results, err := r.store.Search(ctx, query, topK)
	if err != nil {
		return nil, "", err
	}
	log.Debug().Int("retrieved", len(results)).Int("top_k", topK).Msg("Retrieved chunks")

	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Content
	}
	return results, strings.Join(texts, models.ContextSeparator), nil
}
