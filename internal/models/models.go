package models

// ScoredChunk is a retrieved chunk with its relevance score, higher is
// more similar to the query.
type ScoredChunk struct {
	Content string
	Score   float64
}

// Answer is the result of a retrieval-augmented question.
type Answer struct {
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	RelevantChunks []string `json:"relevant_chunks"`
	NumChunksUsed  int      `json:"num_chunks_used"`
}
