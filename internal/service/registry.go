package service

import (
	"sync"

	"shopreviews/internal/core/domain"
)

// Registry stores jobs by id. Implementations must allow concurrent Put and Get.
// Registries never mutate a job; only the job's own task does.
type Registry interface {
	Put(job *domain.Job)
	Get(id string) (*domain.Job, bool)
	Range(fn func(job *domain.Job) bool)
}

// MemoryRegistry keeps jobs for the life of the process.
type MemoryRegistry struct {
	jobs sync.Map
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{}
}

// Put stores job under its id, replacing any previous entry.
func (r *MemoryRegistry) Put(job *domain.Job) {
	r.jobs.Store(job.ID, job)
}

// Get returns the job with the given id.
func (r *MemoryRegistry) Get(id string) (*domain.Job, bool) {
	v, ok := r.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*domain.Job), true
}

// Range calls fn for every job until fn returns false.
func (r *MemoryRegistry) Range(fn func(job *domain.Job) bool) {
	r.jobs.Range(func(_, v any) bool {
		return fn(v.(*domain.Job))
	})
}
