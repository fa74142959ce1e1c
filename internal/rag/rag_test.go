package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medreport-rag/internal/chunker"
	"medreport-rag/internal/llm"
	"medreport-rag/internal/models"
	"medreport-rag/internal/vectorstore"
)

type fakeStore struct {
	builtCollection string
	builtChunks     []string
	buildCalls      int
	addedChunks     []string
	addCalls        int

	searchResults []models.ScoredChunk
	searchedQuery string
	searchedTopK  int

	buildErr  error
	searchErr error
}

func (s *fakeStore) Build(_ context.Context, collection string, chunks []string) error {
	s.buildCalls++
	s.builtCollection = collection
	s.builtChunks = chunks
	return s.buildErr
}

func (s *fakeStore) Add(_ context.Context, chunks []string) error {
	s.addCalls++
	s.addedChunks = chunks
	return nil
}

func (s *fakeStore) Search(_ context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	s.searchedQuery = query
	s.searchedTopK = topK
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchResults, nil
}

func (s *fakeStore) Clear(_ context.Context) error { return nil }

type fakeGen struct {
	summaryIn  string
	analyzeIn  string
	questionIn string
	out        string
	err        error
}

func (g *fakeGen) GenerateSummary(_ context.Context, text string, _ llm.GenerateOptions) (string, error) {
	g.summaryIn = text
	return g.out, g.err
}

func (g *fakeGen) Analyze(_ context.Context, text, question string) (string, error) {
	g.analyzeIn = text
	g.questionIn = question
	return g.out, g.err
}

func newRAG(store vectorstore.Store, gen Generator) *RAG {
	return New(store, gen, chunker.NewSplitter(512, 50), "medical_reports", 5)
}

func TestIngestBuildsCollection(t *testing.T) {
	store := &fakeStore{}
	r := newRAG(store, &fakeGen{})

	err := r.Ingest(context.Background(), "Patient presents with fever.\n\nLungs clear on auscultation.")
	require.NoError(t, err)
	assert.Equal(t, 1, store.buildCalls)
	assert.Equal(t, "medical_reports", store.builtCollection)
	assert.NotEmpty(t, store.builtChunks)
}

func TestIngestBatchFlattensInOrder(t *testing.T) {
	store := &fakeStore{}
	r := newRAG(store, &fakeGen{})

	err := r.IngestBatch(context.Background(), []string{"first report", "second report"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.buildCalls)
	assert.Equal(t, []string{"first report", "second report"}, store.builtChunks)
}

func TestAddDocumentAppends(t *testing.T) {
	store := &fakeStore{}
	r := newRAG(store, &fakeGen{})

	require.NoError(t, r.AddDocument(context.Background(), "follow-up note"))
	assert.Equal(t, 1, store.addCalls)
	assert.Equal(t, []string{"follow-up note"}, store.addedChunks)
}

func TestAddDocumentEmptyIsNoop(t *testing.T) {
	store := &fakeStore{}
	r := newRAG(store, &fakeGen{})

	require.NoError(t, r.AddDocument(context.Background(), ""))
	assert.Zero(t, store.addCalls)
}

func TestSummarizeJoinsRetrievedChunks(t *testing.T) {
	store := &fakeStore{searchResults: []models.ScoredChunk{
		{Content: "chunk one", Score: 0.9},
		{Content: "chunk two", Score: 0.8},
	}}
	gen := &fakeGen{out: "a summary"}
	r := newRAG(store, gen)

	out, err := r.Summarize(context.Background(), "summarize the report", 2)
	require.NoError(t, err)
	assert.Equal(t, "a summary", out)
	assert.Equal(t, "chunk one\n\nchunk two", gen.summaryIn)
	assert.Equal(t, 2, store.searchedTopK)
}

func TestAnswerPackagesRetrievalEvidence(t *testing.T) {
	store := &fakeStore{searchResults: []models.ScoredChunk{
		{Content: "Vitals: BP: 130/85 mmHg, HR 92", Score: 0.95},
		{Content: "Assessment: community-acquired pneumonia", Score: 0.5},
	}}
	gen := &fakeGen{out: "The blood pressure is 130/85 mmHg."}
	r := newRAG(store, gen)

	ans, err := r.Answer(context.Background(), "What is the BP?", 3)
	require.NoError(t, err)

	assert.Equal(t, "What is the BP?", ans.Question)
	assert.Equal(t, "The blood pressure is 130/85 mmHg.", ans.Answer)
	assert.LessOrEqual(t, ans.NumChunksUsed, 3)
	assert.Equal(t, 2, ans.NumChunksUsed)
	require.Len(t, ans.RelevantChunks, 2)
	assert.Contains(t, ans.RelevantChunks[0], "130/85")
	assert.Equal(t, "What is the BP?", gen.questionIn)
	assert.Equal(t, "Vitals: BP: 130/85 mmHg, HR 92\n\nAssessment: community-acquired pneumonia", gen.analyzeIn)
}

func TestAnswerDefaultsTopK(t *testing.T) {
	store := &fakeStore{}
	r := newRAG(store, &fakeGen{})

	_, err := r.Answer(context.Background(), "question", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, store.searchedTopK)
}

func TestRetrievalErrorPropagatesUnmodified(t *testing.T) {
	store := &fakeStore{searchErr: vectorstore.ErrNotInitialized}
	r := newRAG(store, &fakeGen{})

	_, err := r.Answer(context.Background(), "question", 3)
	assert.ErrorIs(t, err, vectorstore.ErrNotInitialized)

	_, err = r.Summarize(context.Background(), "query", 3)
	assert.ErrorIs(t, err, vectorstore.ErrNotInitialized)
}

func TestGenerationErrorPropagatesUnmodified(t *testing.T) {
	store := &fakeStore{searchResults: []models.ScoredChunk{{Content: "chunk", Score: 1}}}
	gen := &fakeGen{err: llm.ErrGeneration}
	r := newRAG(store, gen)

	_, err := r.Answer(context.Background(), "question", 1)
	assert.ErrorIs(t, err, llm.ErrGeneration)
}

func TestIngestErrorPropagatesUnmodified(t *testing.T) {
	store := &fakeStore{buildErr: vectorstore.ErrUnavailable}
	r := newRAG(store, &fakeGen{})

	err := r.Ingest(context.Background(), "some report")
	assert.ErrorIs(t, err, vectorstore.ErrUnavailable)
}
