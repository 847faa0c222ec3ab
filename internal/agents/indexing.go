package agents

import (
	"context"
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"

	"github.com/docintel/backend/internal/vector"
)

type IndexInput struct {
	DocID    string
	Filename string
	Text     string
}

type IndexOutput struct {
	Entries []vector.Entry
}

// Indexing chunks document text and embeds each chunk. It is a pure
// transform: the orchestrator decides when the produced entries become
// visible in the index.
type Indexing struct {
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
}

func NewIndexing(embedder Embedder) *Indexing {
	return &Indexing{
		embedder:     embedder,
		chunkSize:    1000,
		chunkOverlap: 100,
	}
}

func (a *Indexing) Name() string { return "indexing" }

func (a *Indexing) Process(ctx context.Context, in IndexInput) (IndexOutput, error) {
	chunks := a.chunkText(in.Text)
	if len(chunks) == 0 {
		return IndexOutput{}, fmt.Errorf("document %s produced no chunks", in.DocID)
	}

	embeddings, err := a.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return IndexOutput{}, fmt.Errorf("failed to embed chunks: %w", err)
	}

	if len(embeddings) != len(chunks) {
		return IndexOutput{}, fmt.Errorf("embedding count mismatch: got %d, expected %d",
			len(embeddings), len(chunks))
	}

	entries := make([]vector.Entry, len(chunks))
	for i, text := range chunks {
		entries[i] = vector.Entry{
			ChunkID:    fmt.Sprintf("%s_chunk_%d", in.DocID, i),
			DocID:      in.DocID,
			ChunkIndex: i,
			Text:       text,
			Source:     in.Filename,
			Embedding:  embeddings[i],
		}
	}

	return IndexOutput{Entries: entries}, nil
}

// chunkText packs sentences into chunks of roughly chunkSize characters,
// carrying the last sentence over as overlap so retrieval does not lose
// context at chunk boundaries.
func (a *Indexing) chunkText(text string) []string {
	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder
	var lastSentence string

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, sentence := range splitOversized(sentences, a.chunkSize) {
		if current.Len() > 0 && current.Len()+len(sentence) > a.chunkSize {
			flush()
			if len(lastSentence) <= a.chunkOverlap {
				current.WriteString(lastSentence)
				current.WriteString(" ")
			}
		}
		current.WriteString(sentence)
		current.WriteString(" ")
		lastSentence = sentence
	}
	flush()

	return chunks
}

// splitOversized breaks any sentence longer than the chunk size into
// word-boundary pieces so no single chunk can blow past the index's field
// limits.
func splitOversized(sentences []string, size int) []string {
	out := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		if len(sentence) <= size {
			out = append(out, sentence)
			continue
		}

		var piece strings.Builder
		for _, word := range strings.Fields(sentence) {
			if piece.Len() > 0 && piece.Len()+len(word)+1 > size {
				out = append(out, piece.String())
				piece.Reset()
			}
			if piece.Len() > 0 {
				piece.WriteString(" ")
			}
			piece.WriteString(word)
		}
		if piece.Len() > 0 {
			out = append(out, piece.String())
		}
	}
	return out
}

func splitSentences(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false),
	)
	if err == nil {
		sentences := doc.Sentences()
		out := make([]string, 0, len(sentences))
		for _, s := range sentences {
			if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	// Segmentation can fail on degenerate input; fall back to treating
	// whitespace-separated runs as one long sentence stream.
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return []string{strings.Join(fields, " ")}
}
