package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/speaker-diarization/internal/types"
)

// ErrNotFound is returned when a job ID is unknown
var ErrNotFound = errors.New("job not found")

// ErrNotTerminal is returned when deleting a job that is still active
var ErrNotTerminal = errors.New("job is still active")

// Job is a snapshot of one unit of submitted work. Exactly one of
// Result and Error is set once the job reaches a terminal state.
type Job struct {
	ID        string
	Status    types.JobStatus
	Progress  float64
	FilePath  string
	CreatedAt time.Time
	Result    *types.DiarizationResult
	Error     string
}

// entry wraps a job with its own lock so unrelated jobs never contend
type entry struct {
	mu  sync.Mutex
	job Job
}

// Registry is the single source of truth for job state. The outer lock
// only guards the map; per-job mutations serialize on the entry lock, so
// readers always observe a consistent pre- or post-update snapshot.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*entry
}

// New creates an empty registry
func New() *Registry {
	return &Registry{jobs: make(map[string]*entry)}
}

// Create allocates a new job in queued state and returns its ID
func (r *Registry) Create() string {
	id := uuid.New().String()

	r.mu.Lock()
	r.jobs[id] = &entry{job: Job{
		ID:        id,
		Status:    types.StatusQueued,
		CreatedAt: time.Now(),
	}}
	r.mu.Unlock()

	return id
}

// Get returns a snapshot of the job, or ErrNotFound
func (r *Registry) Get(id string) (Job, error) {
	e, ok := r.lookup(id)
	if !ok {
		return Job{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, nil
}

// SetFilePath records the staged file owned by the job
func (r *Registry) SetFilePath(id, path string) error {
	return r.update(id, func(j *Job) error {
		j.FilePath = path
		return nil
	})
}

// ClearFilePath drops the staged file reference after cleanup
func (r *Registry) ClearFilePath(id string) error {
	return r.update(id, func(j *Job) error {
		j.FilePath = ""
		return nil
	})
}

// MarkProcessing transitions a queued job to processing
func (r *Registry) MarkProcessing(id string) error {
	return r.update(id, func(j *Job) error {
		if j.Status != types.StatusQueued {
			return fmt.Errorf("invalid transition: %s -> %s", j.Status, types.StatusProcessing)
		}
		j.Status = types.StatusProcessing
		return nil
	})
}

// SetProgress updates processing progress. Progress is monotonic and
// clamped below 1.0; only Complete sets 1.0. Updates on terminal jobs
// are ignored.
func (r *Registry) SetProgress(id string, progress float64) error {
	return r.update(id, func(j *Job) error {
		if j.Status.Terminal() {
			return nil
		}
		if progress < 0 {
			progress = 0
		}
		if progress >= 1.0 {
			progress = 0.99
		}
		if progress > j.Progress {
			j.Progress = progress
		}
		return nil
	})
}

// Complete transitions a processing job to completed and attaches its result
func (r *Registry) Complete(id string, result *types.DiarizationResult) error {
	return r.update(id, func(j *Job) error {
		if j.Status != types.StatusProcessing {
			return fmt.Errorf("invalid transition: %s -> %s", j.Status, types.StatusCompleted)
		}
		j.Status = types.StatusCompleted
		j.Progress = 1.0
		j.Result = result
		return nil
	})
}

// Fail transitions a queued or processing job to failed with the given
// error description. Failing an already-terminal job is rejected.
func (r *Registry) Fail(id, message string) error {
	return r.update(id, func(j *Job) error {
		if j.Status.Terminal() {
			return fmt.Errorf("invalid transition: %s -> %s", j.Status, types.StatusFailed)
		}
		j.Status = types.StatusFailed
		j.Error = message
		return nil
	})
}

// Delete removes a terminal job from the registry. Active jobs cannot be
// deleted because the worker still owns their staged file.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	terminal := e.job.Status.Terminal()
	e.mu.Unlock()
	if !terminal {
		return ErrNotTerminal
	}

	delete(r.jobs, id)
	return nil
}

// Len returns the number of tracked jobs
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// ActiveCount returns the number of queued or processing jobs
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.jobs))
	for _, e := range r.jobs {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	count := 0
	for _, e := range entries {
		e.mu.Lock()
		if !e.job.Status.Terminal() {
			count++
		}
		e.mu.Unlock()
	}
	return count
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	return e, ok
}

func (r *Registry) update(id string, fn func(*Job) error) error {
	e, ok := r.lookup(id)
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.job)
}
