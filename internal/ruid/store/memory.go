package store

import (
	"context"
	"maps"
	"sync"

	"github.com/statsig-io/ruid/internal/ruid/entity"
)

type InMemoryStats struct {
	mu        sync.RWMutex
	counts    map[entity.Outcome]uint64
	lastError string
}

func NewInMemoryStats() *InMemoryStats {
	return &InMemoryStats{
		counts: make(map[entity.Outcome]uint64),
	}
}

func (s *InMemoryStats) Record(ctx context.Context, outcome entity.Outcome, n int, err error) {
	if n < 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[outcome] += uint64(n)
	if err != nil {
		s.lastError = err.Error()
	}
}

func (s *InMemoryStats) Snapshot(ctx context.Context) (map[entity.Outcome]uint64, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.counts), s.lastError
}
