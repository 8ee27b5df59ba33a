package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// MemoryVectorStore is a brute-force cosine-similarity vector store kept in
// process memory. It backs local development and tests.
type MemoryVectorStore struct {
	mu     sync.RWMutex
	spaces map[string]map[string]Vector
}

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{spaces: make(map[string]map[string]Vector)}
}

func (s *MemoryVectorStore) TestConnection(ctx context.Context) error { return nil }

// Upsert stores vectors in namespace, replacing any with the same id
func (s *MemoryVectorStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	space, ok := s.spaces[namespace]
	if !ok {
		space = make(map[string]Vector)
		s.spaces[namespace] = space
	}
	for _, v := range vectors {
		space[v.ID] = v
	}
	return nil
}

// Query ranks every vector in namespace by cosine similarity to vector
func (s *MemoryVectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]VectorMatch, error) {
	query := toFloat64(vector)
	queryNorm := floats.Norm(query, 2)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]VectorMatch, 0, len(s.spaces[namespace]))
	for id, v := range s.spaces[namespace] {
		if len(v.Values) != len(query) {
			return nil, fmt.Errorf("vector %q dimension mismatch: expected %d, got %d", id, len(query), len(v.Values))
		}
		values := toFloat64(v.Values)
		var score float64
		if denom := queryNorm * floats.Norm(values, 2); denom != 0 {
			score = floats.Dot(query, values) / denom
		}
		m := VectorMatch{ID: id, Score: score}
		if includeMetadata {
			m.Metadata = v.Metadata
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
