package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ratsdok/internal/cache"
	"ratsdok/internal/chunker"
	"ratsdok/internal/common"
	"ratsdok/internal/config"
	"ratsdok/internal/embedding"
	"ratsdok/internal/extract"
	"ratsdok/internal/ingest"
	"ratsdok/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var docsDir string
	var refreshMetadata bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ratsdok/config.yaml if not provided)")
	flag.StringVar(&docsDir, "documents", "", "Documents directory (overrides config)")
	flag.BoolVar(&refreshMetadata, "refresh-metadata", false, "Re-upload payload metadata for already indexed documents")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if docsDir != "" {
		cfg.Index.DocumentsDir = docsDir
	}
	if refreshMetadata {
		cfg.Index.RefreshMetadata = true
	}

	logger := common.InitLogger(cfg)

	embedder, err := embedding.NewClient(embedding.Config{
		BaseURL:           cfg.Embedder.BaseURL,
		APIKey:            config.APIKey(cfg.Embedder.APIKeyEnv),
		Model:             cfg.Embedder.Model,
		Timeout:           time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		FallbackDimension: cfg.Embedder.FallbackDimension,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Embedder init failed")
	}

	store := qdrant.NewStorage(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     config.APIKey(cfg.Qdrant.APIKeyEnv),
		Collection: cfg.Qdrant.Collection,
		Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
	})

	pdf := extract.NewPDFExtractor(logger)
	ocr := extract.NewOCRExtractor(logger, cfg.Index.OCRLanguages)

	pipeline := ingest.NewPipeline(ingest.PipelineConfig{
		Root:      cfg.Index.DocumentsDir,
		Extractor: extract.NewComposite(pdf, ocr, logger),
		Chunker:   chunker.NewRecursiveChunker(cfg.Chunker.Size, *cfg.Chunker.Overlap, *cfg.Chunker.MinChunkLen),
		Embedder:  embedder,
		Cache:     cache.NewStore(logger),
		Sync:      ingest.NewSync(store, logger, cfg.Index.RefreshMetadata),
		BatchSize: cfg.Embedder.BatchSize,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := pipeline.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Indexing run failed")
		os.Exit(1)
	}

	fmt.Printf("Done: %d processed, %d skipped, %d failed (%d total)\n",
		sum.Processed, sum.Skipped, sum.Failed, sum.Total())
	if sum.Failed > 0 {
		os.Exit(1)
	}
}
