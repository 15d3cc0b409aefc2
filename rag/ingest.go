package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/tmc/langchaingo/vectorstores"
)

// Ingest loads .txt food/nutrition files, splits them into chunks, and adds
// them to the vector store. Returns the number of chunks added.
func Ingest(ctx context.Context, store vectorstores.VectorStore, paths []string) (int, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(500),
		textsplitter.WithChunkOverlap(50),
	)

	var docs []schema.Document
	for _, pattern := range paths {
		matches, _ := filepath.Glob(pattern)
		if matches == nil {
			matches = []string{pattern}
		}

		for _, path := range matches {
			if !strings.HasSuffix(strings.ToLower(path), ".txt") {
				continue
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return 0, fmt.Errorf("reading %s: %w", path, err)
			}

			chunks, err := splitter.SplitText(string(data))
			if err != nil {
				return 0, fmt.Errorf("splitting %s: %w", path, err)
			}

			for i, chunk := range chunks {
				docs = append(docs, schema.Document{
					PageContent: chunk,
					Metadata: map[string]any{
						"source": path,
						"chunk":  i,
					},
				})
			}
		}
	}

	if len(docs) == 0 {
		return 0, fmt.Errorf("no .txt documents found")
	}

	if _, err := store.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("adding documents: %w", err)
	}

	return len(docs), nil
}
