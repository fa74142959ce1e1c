package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"medreport-rag/internal/config"
	"medreport-rag/internal/llm"
	"medreport-rag/internal/rag"
)

const version = "1.0.0"

// Server exposes the analysis, streaming, upload and RAG endpoints under
// /api/v1. The RAG pipeline may be nil when no vector store is configured;
// the RAG and upload endpoints then degrade instead of failing at startup.
type Server struct {
	cfg    *config.Config
	engine *llm.Engine
	rag    *rag.RAG
	router *mux.Router
}

func New(cfg *config.Config, engine *llm.Engine, pipeline *rag.RAG, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		rag:    pipeline,
	}

	r := mux.NewRouter()
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(req).Info().
			Str("method", req.Method).
			Stringer("url", req.URL).
			Int("status", status).
			Dur("duration", duration).
			Msg("Request handled")
	}))

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/summarize", s.handleSummarize).Methods(http.MethodPost)
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/summarize/stream", s.handleSummarizeStream).Methods(http.MethodPost)
	api.HandleFunc("/analyze/stream", s.handleAnalyzeStream).Methods(http.MethodPost)
	api.HandleFunc("/upload/document", s.handleUploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/upload/image", s.handleUploadImage).Methods(http.MethodPost)
	api.HandleFunc("/rag/summarize", s.handleRAGSummarize).Methods(http.MethodPost)
	api.HandleFunc("/rag/question", s.handleRAGQuestion).Methods(http.MethodPost)

	s.router = r
	return s
}

// Handler returns the root HTTP handler. CORS wraps the router so preflight
// requests are answered even for method/route combinations mux rejects.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// generationContext bounds a generation call by the configured timeout.
func (s *Server) generationContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.cfg.LLM.TimeoutSecs) * time.Second
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
