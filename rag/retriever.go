package rag

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"nutrichat/backend/pkg/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// Retriever fetches the most relevant snippets for a query from the vector
// store and optionally reranks them with the chat model before they are
// handed to the prompt.
type Retriever struct {
	store  vectorstores.VectorStore
	llm    llms.Model
	topK   int
	rerank bool
	log    *logger.Logger
}

// NewRetriever creates a retriever over a vector store
func NewRetriever(store vectorstores.VectorStore, llm llms.Model, topK int, rerank bool, log *logger.Logger) *Retriever {
	if topK <= 0 {
		topK = 20
	}
	return &Retriever{store: store, llm: llm, topK: topK, rerank: rerank, log: log}
}

// Context returns the retrieved snippets rendered as the prompt's
// "Available Foods" context block.
func (r *Retriever) Context(ctx context.Context, query string) (string, error) {
	docs, err := r.store.SimilaritySearch(ctx, query, r.topK)
	if err != nil {
		return "", fmt.Errorf("similarity search: %w", err)
	}

	if r.rerank && len(docs) > 1 {
		docs = r.rerankDocs(ctx, query, docs)
	}

	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "Document %d:\n-----------\n%s\n", i+1, doc.PageContent)
	}
	return b.String(), nil
}

// rerankDocs reorders candidates by a model-scored relevance in [0,1].
// A document whose score cannot be parsed keeps a zero score rather than
// failing the whole retrieval.
func (r *Retriever) rerankDocs(ctx context.Context, query string, docs []schema.Document) []schema.Document {
	type scored struct {
		doc   schema.Document
		score float64
	}

	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		prompt := fmt.Sprintf(`Query: %s

Candidate snippet: %s

Rate the relevance of this snippet to the query on a scale of 0.0 to 1.0.
Respond with only the number.`, query, doc.PageContent)

		completion, err := llms.GenerateFromSinglePrompt(ctx, r.llm, prompt)
		if err != nil {
			r.log.Warn("rerank scoring failed, keeping original order", "error", err.Error())
			return docs
		}

		score, err := strconv.ParseFloat(strings.TrimSpace(completion), 64)
		if err != nil {
			score = 0.0
		}
		results = append(results, scored{doc: doc, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	reranked := make([]schema.Document, len(results))
	for i, res := range results {
		reranked[i] = res.doc
	}
	return reranked
}
