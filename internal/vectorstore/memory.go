package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	apperr "github.com/medscribe/clinrag/internal/pkg/errors"
)

// MemoryStore is a brute-force cosine-similarity store. It backs the
// "memory" store type and the test suites; re-upserting an ID keeps its
// original insertion position.
type MemoryStore struct {
	mu      sync.RWMutex
	dim     int
	records []Record
	byID    map[string]int
}

func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim, byID: make(map[string]int)}
}

func (s *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if s.dim > 0 && len(rec.Embedding) != s.dim {
			return fmt.Errorf("%w: embedding for %s has dimension %d, store expects %d",
				apperr.ErrInvalid, rec.ID, len(rec.Embedding), s.dim)
		}
		if idx, ok := s.byID[rec.ID]; ok {
			s.records[idx] = rec
			continue
		}
		s.byID[rec.ID] = len(s.records)
		s.records = append(s.records, rec)
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, k int, minScore float32) ([]Match, error) {
	_ = ctx
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", apperr.ErrInvalid, k)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dim > 0 && len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, store expects %d",
			apperr.ErrInvalid, len(vector), s.dim)
	}
	var matches []Match
	for _, rec := range s.records {
		score := cosineSimilarity(vector, rec.Embedding)
		if score >= minScore {
			matches = append(matches, Match{
				Text:       rec.Text,
				DocumentID: rec.DocumentID,
				ChunkIndex: rec.ChunkIndex,
				Score:      score,
			})
		}
	}
	// stable sort keeps insertion order among equal scores
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *MemoryStore) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []Record
	var removed int64
	for _, rec := range s.records {
		if rec.DocumentID == documentID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	s.byID = make(map[string]int, len(kept))
	for i, rec := range kept {
		s.byID[rec.ID] = i
	}
	return removed, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.byID = make(map[string]int)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
