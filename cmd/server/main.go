package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"medreport-rag/internal/chunker"
	"medreport-rag/internal/config"
	"medreport-rag/internal/embedding"
	"medreport-rag/internal/helper"
	"medreport-rag/internal/llm"
	"medreport-rag/internal/rag"
	"medreport-rag/internal/server"
	"medreport-rag/internal/vectorstore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	// Environment overrides come from a local .env when present.
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	engine := llm.NewEngine(&cfg.LLM)
	if engine.Available() {
		// Warm the model up front so the first request does not pay the
		// load cost. A failure here is retried lazily on demand.
		if err := engine.Load(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Model load failed at startup, retrying on first request")
		}
	} else {
		log.Warn().Msg("No generation model configured, generation endpoints will report unavailable")
	}

	pipeline, closeStore := buildPipeline(cfg, engine)
	if closeStore != nil {
		defer closeStore()
	}

	srv := server.New(cfg, engine, pipeline, log.Logger)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Starting server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// buildPipeline wires the embedder, vector store and splitter into the RAG
// coordinator. Any failure disables the RAG endpoints instead of aborting
// startup; the rest of the API keeps working.
func buildPipeline(cfg *config.Config, engine *llm.Engine) (*rag.RAG, func()) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Warn().Err(err).Msg("Embedding model unavailable, RAG endpoints disabled")
		return nil, nil
	}

	var (
		store  vectorstore.Store
		closer func()
	)
	switch cfg.RAG.StoreBackend {
	case "pgvector":
		pg, err := vectorstore.NewPGStore(context.Background(), &cfg.Database, cfg.RAG.Collection, embedder)
		if err != nil {
			log.Warn().Err(err).Msg("Vector store unavailable, RAG endpoints disabled")
			return nil, nil
		}
		store = pg
		closer = func() {
			if err := pg.Close(); err != nil {
				log.Error().Err(err).Msg("Closing vector store failed")
			}
		}
	default:
		if err := helper.CreateFolder(cfg.RAG.StorePath); err != nil {
			log.Warn().Err(err).Msg("Vector store path unusable, RAG endpoints disabled")
			return nil, nil
		}
		cs, err := vectorstore.NewChromemStore(cfg.RAG.StorePath, cfg.RAG.Collection, false, embedder)
		if err != nil {
			log.Warn().Err(err).Msg("Vector store unavailable, RAG endpoints disabled")
			return nil, nil
		}
		store = cs
	}

	splitter := chunker.NewSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	return rag.New(store, engine, splitter, cfg.RAG.Collection, cfg.RAG.TopK), closer
}
