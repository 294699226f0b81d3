package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/core/domain"
)

const (
	// DefaultReapInterval is how often the background reaper scans.
	DefaultReapInterval = 10 * time.Minute
	// DefaultRetention is how long a job is kept after creation, regardless
	// of status.
	DefaultRetention = time.Hour
)

// Registry tracks the lifecycle of background jobs in memory. It knows
// nothing about what the work is. Instances are constructed explicitly and
// injected, so tests get isolated registries and production can later swap in
// a shared store without touching pipeline code.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job

	logger *logrus.Logger
	now    func() time.Time

	stopReaper chan struct{}
	reaperOnce sync.Once
	closeOnce  sync.Once
}

// NewRegistry creates an empty registry. The reaper loop is not started until
// StartReaper is called.
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		jobs:       make(map[string]*domain.Job),
		logger:     logger,
		now:        time.Now,
		stopReaper: make(chan struct{}),
	}
}

// Create allocates a fresh job in the pending state and returns its ID.
func (r *Registry) Create() string {
	now := r.now()
	job := &domain.Job{
		ID:        uuid.New().String(),
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return job.ID
}

// Update is a partial mutation of a job's status, result or error. It reports
// false only for an unknown ID. Terminal states are final: a status change on
// a completed or failed job is ignored.
type Update struct {
	Status *domain.JobStatus
	Result *domain.DiscoveryResult
	Error  *string
}

// Update applies the given partial update, advancing UpdatedAt.
func (r *Registry) Update(id string, upd Update) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}

	if upd.Status != nil {
		if job.Status.Terminal() {
			r.logger.WithFields(logrus.Fields{
				"job_id": id,
				"from":   job.Status,
				"to":     *upd.Status,
			}).Warn("Ignoring status change on terminal job")
			return true
		}
		job.Status = *upd.Status
	}
	if upd.Result != nil {
		job.Result = upd.Result
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	job.UpdatedAt = r.now()
	return true
}

// Get returns a copy of the job, or false if unknown (never created, deleted,
// or already reaped — callers cannot tell these apart).
func (r *Registry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// Delete removes a job, reporting whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	return true
}

// Reap removes every job created more than maxAge ago, regardless of status,
// and returns the number removed.
func (r *Registry) Reap(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.WithField("count", removed).Info("Reaped expired jobs")
	}
	return removed
}

// StartReaper launches the background reap loop. It runs until Close. Calling
// it more than once has no effect.
func (r *Registry) StartReaper(interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}

	r.reaperOnce.Do(func() {
		ticker := time.NewTicker(interval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					r.Reap(maxAge)
				case <-r.stopReaper:
					return
				}
			}
		}()
	})
}

// Close stops the reaper loop.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stopReaper)
	})
}
