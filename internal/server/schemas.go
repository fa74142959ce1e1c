package server

import (
	"errors"
	"strings"
)

type SummarizeRequest struct {
	Text        string  `json:"text"`
	MaxLength   int     `json:"max_length,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

func (r *SummarizeRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text is required")
	}
	if r.MaxLength != 0 && (r.MaxLength < 50 || r.MaxLength > 2048) {
		return errors.New("max_length must be between 50 and 2048")
	}
	if r.Temperature != 0 && (r.Temperature < 0.1 || r.Temperature > 1.0) {
		return errors.New("temperature must be between 0.1 and 1.0")
	}
	return nil
}

type AnalyzeRequest struct {
	Text     string `json:"text"`
	Question string `json:"question"`
}

func (r *AnalyzeRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text is required")
	}
	if strings.TrimSpace(r.Question) == "" {
		return errors.New("question is required")
	}
	return nil
}

type RAGSummaryRequest struct {
	Query string `json:"query,omitempty"`
	TopK  int    `json:"top_k,omitempty"`
}

func (r *RAGSummaryRequest) Validate() error {
	if r.TopK != 0 && (r.TopK < 1 || r.TopK > 20) {
		return errors.New("top_k must be between 1 and 20")
	}
	return nil
}

type RAGQuestionRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

func (r *RAGQuestionRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return errors.New("question is required")
	}
	if r.TopK != 0 && (r.TopK < 1 || r.TopK > 20) {
		return errors.New("top_k must be between 1 and 20")
	}
	return nil
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Version     string `json:"version"`
	MLAvailable bool   `json:"ml_available"`
	Device      string `json:"device,omitempty"`
}

type SummaryResponse struct {
	Summary       string `json:"summary"`
	InputLength   int    `json:"input_length"`
	SummaryLength int    `json:"summary_length"`
}

type AnswerResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type RAGAnswerResponse struct {
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	NumChunksUsed  int      `json:"num_chunks_used"`
	RelevantChunks []string `json:"relevant_chunks"`
}

type DocumentUploadResponse struct {
	Filename  string `json:"filename"`
	FileSize  int64  `json:"file_size"`
	Format    string `json:"format"`
	Processed bool   `json:"processed"`
	Message   string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
