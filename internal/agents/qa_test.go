package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docintel/backend/internal/vector"
	vectormem "github.com/docintel/backend/internal/vector/memory"
)

type fakeCompleter struct {
	answer string
	err    error
	calls  int
}

func (f *fakeCompleter) GenerateAnswer(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func seededStore(t *testing.T) *vectormem.Store {
	t.Helper()

	store := vectormem.NewStore()
	err := store.Upsert(context.Background(), "doc1", []vector.Entry{
		{ChunkID: "doc1_chunk_0", DocID: "doc1", Text: "alpha", Source: "guide.pdf", Embedding: []float32{1, 0, 0}},
		{ChunkID: "doc1_chunk_1", DocID: "doc1", Text: "beta", Source: "guide.pdf", Embedding: []float32{0.9, 0.1, 0}},
	})
	require.NoError(t, err)

	err = store.Upsert(context.Background(), "doc2", []vector.Entry{
		{ChunkID: "doc2_chunk_0", DocID: "doc2", Text: "gamma", Source: "notes.txt", Embedding: []float32{0.8, 0.2, 0}},
	})
	require.NoError(t, err)

	return store
}

func TestQAAnswersWithUniqueSources(t *testing.T) {
	completer := &fakeCompleter{answer: "The answer is alpha."}
	agent := NewQA(&fakeEmbedder{}, seededStore(t), completer)

	out, err := agent.Process(context.Background(), QAInput{Query: "what is alpha?", TopK: 3})
	require.NoError(t, err)

	assert.Equal(t, "The answer is alpha.", out.Answer)
	assert.Equal(t, 1, completer.calls)
	// guide.pdf contributed two chunks but appears once, in rank order.
	assert.Equal(t, []string{"guide.pdf", "notes.txt"}, out.Sources)
}

func TestQAEmptyStoreSkipsCompletion(t *testing.T) {
	completer := &fakeCompleter{answer: "unused"}
	agent := NewQA(&fakeEmbedder{}, vectormem.NewStore(), completer)

	out, err := agent.Process(context.Background(), QAInput{Query: "anything?", TopK: 3})
	require.NoError(t, err)

	assert.Zero(t, completer.calls)
	assert.Empty(t, out.Sources)
	assert.Contains(t, out.Answer, "No relevant content")
}

func TestQACompletionFailure(t *testing.T) {
	agent := NewQA(&fakeEmbedder{}, seededStore(t), &fakeCompleter{err: errors.New("llm down")})

	_, err := agent.Process(context.Background(), QAInput{Query: "what is alpha?", TopK: 3})
	assert.ErrorContains(t, err, "answer generation failed")
}

func TestQAEmbedFailure(t *testing.T) {
	agent := NewQA(&fakeEmbedder{err: errors.New("quota")}, seededStore(t), &fakeCompleter{})

	_, err := agent.Process(context.Background(), QAInput{Query: "what is alpha?", TopK: 3})
	assert.ErrorContains(t, err, "failed to embed query")
}
