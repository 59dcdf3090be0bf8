package main

import (
	"flag"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"ratsdok/internal/agent"
	"ratsdok/internal/common"
	"ratsdok/internal/config"
	"ratsdok/internal/embedding"
	"ratsdok/internal/tui"
	"ratsdok/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ratsdok/config.yaml if not provided)")
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

	logger := common.InitLogger(cfg)

	apiKey := config.APIKey(cfg.Chat.APIKeyEnv)
	if apiKey == "" {
		log.Fatalf("missing Anthropic API key: set %s", cfg.Chat.APIKeyEnv)
	}

	embedder, err := embedding.NewClient(embedding.Config{
		BaseURL:           cfg.Embedder.BaseURL,
		APIKey:            config.APIKey(cfg.Embedder.APIKeyEnv),
		Model:             cfg.Embedder.Model,
		Timeout:           time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		FallbackDimension: cfg.Embedder.FallbackDimension,
	})
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	store := qdrant.NewStorage(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     config.APIKey(cfg.Qdrant.APIKeyEnv),
		Collection: cfg.Qdrant.Collection,
		Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
	})

	retriever := agent.NewRetriever(agent.RetrieverConfig{
		Embedder:     embedder,
		Store:        store,
		Logger:       logger,
		DefaultLimit: cfg.Chat.SearchLimit,
		MaxLimit:     cfg.Chat.MaxSearchLimit,
		Expand:       !cfg.Chat.DisableContextExpansion,
	})

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	loop := agent.NewLoop(agent.LoopConfig{
		Messages:      &client.Messages,
		Retriever:     retriever,
		Logger:        logger,
		Model:         cfg.Chat.Model,
		MaxTokens:     int64(cfg.Chat.MaxTokens),
		MaxIterations: cfg.Chat.MaxIterations,
	})

	m := tui.New(agent.NewConversation(loop))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
