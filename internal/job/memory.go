package job

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// Records live only as long as the process.
type MemoryRepository struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs: make(map[string]*Job),
	}
}

// Save persists a job to the in-memory storage.
// Creates a clone to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		r.order = append(r.order, job.ID)
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

// ListByRun returns clones of the run's jobs in insertion order.
func (r *MemoryRepository) ListByRun(_ context.Context, runID string) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Job, 0, len(r.order))
	for _, id := range r.order {
		if job := r.jobs[id]; job.RunID == runID {
			result = append(result, job.Clone())
		}
	}
	return result, nil
}
