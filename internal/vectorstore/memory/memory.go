// Package memory is an in-process vector store with brute-force cosine
// search. It backs tests and local development without a Qdrant instance.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"ratsdok/internal/domain"
)

type Storage struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]domain.Point
}

var _ domain.VectorStore = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{points: make(map[string]domain.Point)}
}

func (s *Storage) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return errors.New("dimension mismatch with existing collection")
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		if s.dimension != 0 && len(p.Vector) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		s.points[p.ID] = p
	}
	return nil
}

func (s *Storage) Scroll(ctx context.Context, offset string, limit int, payloadFields []string) ([]domain.ScoredPoint, string, error) {
	if limit <= 0 {
		limit = 1000
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.points))
	for id := range s.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := 0
	if offset != "" {
		for i, id := range ids {
			if id == offset {
				start = i
				break
			}
		}
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}

	out := make([]domain.ScoredPoint, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, domain.ScoredPoint{ID: id, Payload: s.points[id].Payload})
	}
	next := ""
	if end < len(ids) {
		next = ids[end]
	}
	return out, next, nil
}

func (s *Storage) DeleteByFilename(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points {
		if p.Payload.Filename == filename {
			delete(s.points, id)
		}
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, limit int) ([]domain.ScoredPoint, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.ScoredPoint, 0, len(s.points))
	for id, p := range s.points {
		results = append(results, domain.ScoredPoint{ID: id, Score: dot(p.Vector, vector), Payload: p.Payload})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if limit > len(results) {
		limit = len(results)
	}
	return results[:limit], nil
}

func (s *Storage) FindChunk(ctx context.Context, filename string, page, chunkIndex int) (*domain.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, p := range s.points {
		if p.Payload.Filename == filename && p.Payload.Page == page && p.Payload.ChunkIndex == chunkIndex {
			return &domain.ScoredPoint{ID: id, Payload: p.Payload}, nil
		}
	}
	return nil, nil
}

// Len reports the number of stored points.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// cosine similarity on L2-normalized vectors reduces to the dot product
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
