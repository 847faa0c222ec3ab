package agents

import "context"

// Agent is one pipeline stage: a pure transform from its declared input to
// its output. Stages hold no shared mutable state; the orchestrator owns
// sequencing and every write that makes results visible.
type Agent[In, Out any] interface {
	Name() string
	Process(ctx context.Context, in In) (Out, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates an answer from a question and retrieved context.
type Completer interface {
	GenerateAnswer(ctx context.Context, query, docContext string) (string, error)
}
