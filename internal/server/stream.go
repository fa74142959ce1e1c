package server

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"medreport-rag/internal/llm"
)

func (s *Server) handleSummarizeStream(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	if !s.engine.Available() {
		respondError(w, r, llm.ErrUnavailable)
		return
	}

	ctx, cancel := s.generationContext(r.Context())
	defer cancel()

	st := s.engine.GenerateSummaryStream(ctx, req.Text, llm.GenerateOptions{
		MaxTokens:   req.MaxLength,
		Temperature: req.Temperature,
	})
	s.streamSSE(w, r, st)
}

func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	if !s.engine.Available() {
		respondError(w, r, llm.ErrUnavailable)
		return
	}

	ctx, cancel := s.generationContext(r.Context())
	defer cancel()

	st := s.engine.AnalyzeStream(ctx, req.Text, req.Question)
	s.streamSSE(w, r, st)
}

// streamSSE drains a token stream as server-sent events. The stream ends with
// exactly one terminal marker: [DONE] on success, [ERROR: ...] on failure.
func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, st *llm.Stream) {
	defer st.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "InternalServerError",
			"streaming not supported by the connection")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for token := range st.Tokens() {
		fmt.Fprintf(w, "data: %s\n\n", token)
		flusher.Flush()
	}

	if err := st.Err(); err != nil {
		// Full detail stays in the log; the frame carries a generic
		// marker like the non-streaming error bodies.
		hlog.FromRequest(r).Error().Err(err).Msg("Streaming generation failed")
		fmt.Fprint(w, "data: [ERROR: generation failed]\n\n")
		flusher.Flush()
		return
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
