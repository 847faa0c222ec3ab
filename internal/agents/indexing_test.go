package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err   error
	calls [][]string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = []float32{float32(len(text)), float32(i), 1}
	}
	return vecs, nil
}

func TestIndexingProducesOrderedEntries(t *testing.T) {
	embedder := &fakeEmbedder{}
	agent := NewIndexing(embedder)

	out, err := agent.Process(context.Background(), IndexInput{
		DocID:    "doc1",
		Filename: "report.pdf",
		Text:     "First sentence here. Second sentence follows. Third one closes.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Entries)

	for i, entry := range out.Entries {
		assert.Equal(t, "doc1", entry.DocID)
		assert.Equal(t, i, entry.ChunkIndex)
		assert.Contains(t, entry.ChunkID, "doc1_chunk_")
		assert.Equal(t, "report.pdf", entry.Source)
		assert.NotEmpty(t, entry.Embedding)
		assert.NotEmpty(t, entry.Text)
	}
}

func TestIndexingChunksLongText(t *testing.T) {
	agent := NewIndexing(&fakeEmbedder{})

	// Several hundred short sentences force multiple chunks.
	sentence := "The quick brown fox jumps over the lazy dog near the river bank. "
	out, err := agent.Process(context.Background(), IndexInput{
		DocID:    "doc1",
		Filename: "long.txt",
		Text:     strings.Repeat(sentence, 200),
	})
	require.NoError(t, err)
	assert.Greater(t, len(out.Entries), 1)

	for _, entry := range out.Entries {
		assert.LessOrEqual(t, len(entry.Text), 1200)
	}
}

func TestIndexingOversizedSentence(t *testing.T) {
	agent := NewIndexing(&fakeEmbedder{})

	// A single 5000-char "sentence" with no terminal punctuation must still
	// be split below the chunk ceiling.
	out, err := agent.Process(context.Background(), IndexInput{
		DocID:    "doc1",
		Filename: "blob.txt",
		Text:     strings.TrimSpace(strings.Repeat("word ", 1000)),
	})
	require.NoError(t, err)
	assert.Greater(t, len(out.Entries), 1)

	for _, entry := range out.Entries {
		assert.LessOrEqual(t, len(entry.Text), 1200)
	}
}

func TestIndexingEmbedFailure(t *testing.T) {
	agent := NewIndexing(&fakeEmbedder{err: errors.New("rate limited")})

	_, err := agent.Process(context.Background(), IndexInput{
		DocID:    "doc1",
		Filename: "report.pdf",
		Text:     "Some content to embed.",
	})
	assert.ErrorContains(t, err, "failed to embed chunks")
}
