package job

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/strata/internal/api/response"
	"github.com/newthinker/strata/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Done reports whether the job has finished.
func (s Status) Done() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job represents an async job.
type Job struct {
	ID        string                `json:"id"`
	Type      string                `json:"type"`
	Status    Status                `json:"status"`
	Progress  int                   `json:"progress"`
	Result    any                   `json:"result,omitempty"`
	Error     *response.ErrorDetail `json:"error,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Store manages async jobs. Finished jobs expire after ttl; the oldest job
// is evicted when the store is full.
type Store struct {
	jobs    map[string]*Job
	order   []string // Track insertion order for eviction
	maxSize int
	ttl     time.Duration
	mu      sync.RWMutex
	now     func() time.Time
}

// NewStore creates a new job store. A zero ttl keeps finished jobs until
// evicted.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Store{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create creates a new job and returns it.
func (s *Store) Create(jobType string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()

	now := s.now()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Evict oldest if at capacity
	if len(s.jobs) >= s.maxSize && len(s.order) > 0 {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}

	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)

	jobCopy := *job
	return &jobCopy
}

// Get retrieves a job by ID.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok || s.expired(job) {
		return nil, core.Errorf(core.ErrNotFound, "job %s", id)
	}

	// Return copy to prevent race conditions
	jobCopy := *job
	return &jobCopy, nil
}

// Update modifies a job using an update function.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.Errorf(core.ErrNotFound, "job %s", id)
	}

	fn(job)
	job.UpdatedAt = s.now()
	return nil
}

// Fail marks the job failed with err.
func (s *Store) Fail(id string, err error) error {
	detail := response.Detail(err)
	return s.Update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = &detail
	})
}

// Complete marks the job finished with result.
func (s *Store) Complete(id string, result any) error {
	return s.Update(id, func(j *Job) {
		j.Status = StatusComplete
		j.Progress = 100
		j.Result = result
	})
}

// List returns all live jobs in creation order.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Job, 0, len(s.jobs))
	for _, id := range s.order {
		if job := s.jobs[id]; !s.expired(job) {
			result = append(result, *job)
		}
	}
	return result
}

// Active counts unfinished jobs of jobType.
func (s *Store) Active(jobType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, job := range s.jobs {
		if job.Type == jobType && !job.Status.Done() {
			n++
		}
	}
	return n
}

func (s *Store) expired(job *Job) bool {
	return s.ttl > 0 && job.Status.Done() && s.now().Sub(job.UpdatedAt) > s.ttl
}

// prune drops expired jobs. Callers hold the write lock.
func (s *Store) prune() {
	kept := s.order[:0]
	for _, id := range s.order {
		if s.expired(s.jobs[id]) {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
