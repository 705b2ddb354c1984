package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"policy-rag/internal/chunker"
	"policy-rag/internal/composer"
	"policy-rag/internal/config"
	"policy-rag/internal/db"
	"policy-rag/internal/embedding"
	"policy-rag/internal/ingest"
	"policy-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	filePath := flag.String("file", "", "Index a single file and exit")
	watch := flag.Bool("watch", false, "Watch the data directory and index new files")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment as-is")
	}

	cfg, err := config.Load(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	store, err := vectorstore.New(cfg.VectorDB, cfg.EmbedLLM.Dim, cfg.RAG.UpsertBatch)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open vector store")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize embedder")
	}

	var reformatter ingest.Reformatter
	if cfg.Ingest.ReformatTables {
		comp, err := composer.New(&cfg.ChatLLM, cfg.RAG.MaxContextDocs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize chat model for table reformatting")
		}
		reformatter = comp
	}

	pipeline := ingest.NewPipeline(
		chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder,
		store,
		reformatter,
		cfg.Table,
		cfg.Ingest.ReformatTables,
	)

	switch {
	case *filePath != "":
		count, err := pipeline.IngestFile(ctx, *filePath)
		if err != nil {
			log.Fatal().Err(err).Str("file", *filePath).Msg("Ingestion failed")
		}
		log.Info().Int("chunks", count).Str("file", *filePath).Msg("Done")

	case *watch:
		bunDB, err := db.Connect(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect tracker database")
		}
		defer bunDB.Close()

		tracker, err := ingest.NewTracker(ctx, bunDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracker")
		}

		runCtx, cancel := context.WithCancel(ctx)
		go func() {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			cancel()
		}()

		scheduler := ingest.NewScheduler(pipeline, tracker, cfg.Ingest.DataDir,
			time.Duration(cfg.Ingest.IntervalSeconds)*time.Second)
		log.Info().Str("dir", cfg.Ingest.DataDir).Msg("Watching data directory")
		scheduler.Run(runCtx)

	default:
		log.Fatal().Msg("Provide -file <path> to index one file or -watch to watch the data directory")
	}
}
