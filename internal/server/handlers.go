package server

import (
	"net/http"

	"medreport-rag/internal/llm"
	"medreport-rag/internal/models"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "Medical Report Analysis API",
		"version": version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		ModelLoaded: s.engine.Loaded(),
		Version:     version,
		MLAvailable: s.engine.Available(),
		Device:      s.engine.Device(),
	})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	ctx, cancel := s.generationContext(r.Context())
	defer cancel()

	summary, err := s.engine.GenerateSummary(ctx, req.Text, llm.GenerateOptions{
		MaxTokens:   req.MaxLength,
		Temperature: req.Temperature,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Summary:       summary,
		InputLength:   len(req.Text),
		SummaryLength: len(summary),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	ctx, cancel := s.generationContext(r.Context())
	defer cancel()

	answer, err := s.engine.Analyze(ctx, req.Text, req.Question)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{
		Question: req.Question,
		Answer:   answer,
	})
}

func (s *Server) handleRAGSummarize(w http.ResponseWriter, r *http.Request) {
	var req RAGSummaryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	if s.rag == nil {
		writeError(w, http.StatusServiceUnavailable, "ServiceUnavailable",
			"RAG pipeline unavailable. Configure a vector store and restart the service.")
		return
	}

	query := req.Query
	if query == "" {
		query = models.DefaultRAGQuery
	}

	ctx, cancel := s.generationContext(r.Context())
	defer cancel()

	summary, err := s.rag.Summarize(ctx, query, req.TopK)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Summary:       summary,
		SummaryLength: len(summary),
	})
}

func (s *Server) handleRAGQuestion(w http.ResponseWriter, r *http.Request) {
	var req RAGQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	if s.rag == nil {
		writeError(w, http.StatusServiceUnavailable, "ServiceUnavailable",
			"RAG pipeline unavailable. Configure a vector store and restart the service.")
		return
	}

	ctx, cancel := s.generationContext(r.Context())
	defer cancel()

	answer, err := s.rag.Answer(ctx, req.Question, req.TopK)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RAGAnswerResponse{
		Question:       answer.Question,
		Answer:         answer.Answer,
		NumChunksUsed:  answer.NumChunksUsed,
		RelevantChunks: answer.RelevantChunks,
	})
}
