package main

import (
	"context"
	"flag"
	"os"

	"nutrichat/backend/pkg/config"
	"nutrichat/backend/pkg/logger"
	"nutrichat/backend/rag"
)

// Loads .txt food/nutrition files into the Chroma collection the chat
// service retrieves from.
//
//	ingest -path 'data/*.txt'
func main() {
	var pathFlag string
	flag.StringVar(&pathFlag, "path", "data/*.txt", "glob of .txt files to ingest")
	flag.Parse()

	cfg := config.New()
	log := logger.New(logger.Config{Level: cfg.Logging.Level, JSON: false})

	store, err := rag.NewStore(rag.Config{
		ChromaURL:      cfg.RAG.ChromaURL,
		Namespace:      cfg.RAG.Namespace,
		EmbeddingModel: cfg.RAG.EmbeddingModel,
		ChatModel:      cfg.RAG.ChatModel,
		OpenAIToken:    os.Getenv("OPENAI_API_KEY"),
	})
	if err != nil {
		log.Error("failed to initialize RAG store", "error", err.Error())
		os.Exit(1)
	}

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{pathFlag}
	}

	count, err := rag.Ingest(context.Background(), store.Vector, paths)
	if err != nil {
		log.Error("ingestion failed", "error", err.Error())
		os.Exit(1)
	}

	log.Info("ingestion complete", "chunks", count, "namespace", cfg.RAG.Namespace)
}
