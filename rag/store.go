package rag

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/vectorstores/chroma"
)

// Config configures the RAG pipeline's external collaborators
type Config struct {
	ChromaURL      string
	Namespace      string
	EmbeddingModel string
	ChatModel      string
	OpenAIToken    string
	TopK           int
	Rerank         bool
}

// Store bundles the chat model and the Chroma vector store. Constructed once
// at startup and injected into the retriever and pipeline.
type Store struct {
	LLM    *openai.LLM
	Vector chroma.Store
}

// NewStore connects to the chat-completion API and the Chroma server
func NewStore(cfg Config) (*Store, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.OpenAIToken),
		openai.WithModel(cfg.ChatModel),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	vector, err := chroma.New(
		chroma.WithChromaURL(cfg.ChromaURL),
		chroma.WithEmbedder(embedder),
		chroma.WithNameSpace(cfg.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chroma at %s: %w", cfg.ChromaURL, err)
	}

	return &Store{LLM: llm, Vector: vector}, nil
}
