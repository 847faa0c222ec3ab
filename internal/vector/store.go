package vector

import "context"

// Entry is one embedded chunk as stored in the index.
type Entry struct {
	ChunkID    string
	DocID      string
	ChunkIndex int
	Text       string
	Source     string
	Embedding  []float32
}

// SearchResult is a retrieved chunk with its similarity score.
type SearchResult struct {
	ChunkID string
	DocID   string
	Text    string
	Source  string
	Score   float32
}

// Store abstracts the similarity index. Upsert replaces any previous
// entries for the same document; DeleteByDoc removes every entry the
// document ever contributed.
type Store interface {
	Upsert(ctx context.Context, docID string, entries []Entry) error
	Search(ctx context.Context, embedding []float32, topK int) ([]SearchResult, error)
	DeleteByDoc(ctx context.Context, docID string) error
	Close() error
}
