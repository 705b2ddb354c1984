package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"policy-rag/internal/api"
	"policy-rag/internal/composer"
	"policy-rag/internal/config"
	"policy-rag/internal/db"
	"policy-rag/internal/embedding"
	"policy-rag/internal/memory"
	"policy-rag/internal/retriever"
	"policy-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment as-is")
	}

	cfg, err := config.Load(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	bunDB, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect session database")
	}
	defer bunDB.Close()

	mem, err := memory.New(ctx, bunDB, cfg.RAG.HistoryTurns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session memory")
	}

	store, err := vectorstore.New(cfg.VectorDB, cfg.EmbedLLM.Dim, cfg.RAG.UpsertBatch)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open vector store")
	}
	log.Info().Int("chunks", store.Count()).Str("collection", cfg.VectorDB.Collection).Msg("Vector store ready")

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize embedder")
	}

	comp, err := composer.New(&cfg.ChatLLM, cfg.RAG.MaxContextDocs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chat model")
	}

	rtr := retriever.New(embedder, store)
	handler := api.NewHandler(rtr, comp, mem, cfg.RAG.TopK)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: api.NewRouter(handler),
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}
