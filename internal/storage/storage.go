package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/imgreader/internal/models"
)

// RunStore keeps run records in memory
type RunStore struct {
	runs map[string]*models.Run
	mu   sync.RWMutex
}

func New() *RunStore {
	return &RunStore{
		runs: make(map[string]*models.Run),
	}
}

// Get returns a copy of the run so callers never share it with a writer
func (s *RunStore) Get(id string) (*models.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, exists := s.runs[id]
	if !exists {
		return nil, false
	}
	cp := *run
	return &cp, true
}

func (s *RunStore) Set(run *models.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
}

// List returns copies of all runs, oldest first
func (s *RunStore) List() []*models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Run, 0, len(s.runs))
	for _, run := range s.runs {
		cp := *run
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *RunStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}
