package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/docintel/backend/internal/vector"
)

type QAInput struct {
	Query string
	TopK  int
}

type QAOutput struct {
	Answer  string
	Sources []string
}

// QA answers a question by embedding it, retrieving the nearest chunks and
// asking the completion service to ground an answer in them.
type QA struct {
	embedder  Embedder
	store     vector.Store
	completer Completer
}

func NewQA(embedder Embedder, store vector.Store, completer Completer) *QA {
	return &QA{
		embedder:  embedder,
		store:     store,
		completer: completer,
	}
}

func (a *QA) Name() string { return "qa" }

func (a *QA) Process(ctx context.Context, in QAInput) (QAOutput, error) {
	embedding, err := a.embedder.Embed(ctx, in.Query)
	if err != nil {
		return QAOutput{}, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := a.store.Search(ctx, embedding, in.TopK)
	if err != nil {
		return QAOutput{}, fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) == 0 {
		return QAOutput{
			Answer:  "No relevant content was found in the indexed documents.",
			Sources: []string{},
		}, nil
	}

	answer, err := a.completer.GenerateAnswer(ctx, in.Query, formatContext(results))
	if err != nil {
		return QAOutput{}, fmt.Errorf("answer generation failed: %w", err)
	}

	return QAOutput{
		Answer:  answer,
		Sources: uniqueSources(results),
	}, nil
}

func formatContext(results []vector.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, r.Source, r.Text)
	}
	return b.String()
}

// uniqueSources preserves retrieval rank order while dropping duplicates.
func uniqueSources(results []vector.SearchResult) []string {
	seen := make(map[string]struct{}, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		sources = append(sources, r.Source)
	}
	return sources
}
