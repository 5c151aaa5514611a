package jobqueue

import (
	"sync"

	"github.com/google/uuid"

	"sdxlruntime/internal/domain"
)

// Registry owns the id -> Job mapping. All operations are O(1), so a single
// lock over the map is sufficient even under concurrent admission, polling
// and retirement.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*domain.Job)}
}

// Create allocates a fresh id, registers a queued job for the request and
// returns it. Ids are uuids and are never reused.
func (r *Registry) Create(req domain.GenerationRequest) *domain.Job {
	job := domain.NewJob(uuid.NewString(), req)
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return job
}

// Get returns the job for id or domain.ErrNotFound.
func (r *Registry) Get(id string) (*domain.Job, error) {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

// Remove deletes the entry for id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

// Len reports the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Snapshot returns the currently registered jobs in no particular order.
func (r *Registry) Snapshot() []*domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
