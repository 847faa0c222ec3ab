package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/docintel/backend/internal/vector"
)

// Store is a process-local brute-force cosine similarity index. It backs
// deployments without a Milvus endpoint and keeps tests hermetic; contents
// do not survive a restart.
type Store struct {
	mu      sync.RWMutex
	entries []vector.Entry
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Upsert(ctx context.Context, docID string, entries []vector.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(docID)
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]vector.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, errors.New("empty query embedding")
	}
	if topK <= 0 {
		topK = 4
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]vector.SearchResult, 0, len(s.entries))
	for _, e := range s.entries {
		results = append(results, vector.SearchResult{
			ChunkID: e.ChunkID,
			DocID:   e.DocID,
			Text:    e.Text,
			Source:  e.Source,
			Score:   cosine(embedding, e.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}

	return results, nil
}

func (s *Store) DeleteByDoc(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(docID)
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) deleteLocked(docID string) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.DocID != docID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
