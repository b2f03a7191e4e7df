package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/jobs"
)

// Store keeps ingest jobs in a map keyed by job ID. Jobs go in and come out
// as clones, so a caller mutating a returned job never changes the stored one.
// Nothing survives a process restart; the job history is only as long as the
// process has run.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.IngestJob
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.IngestJob),
	}
}

// SaveJob inserts the job or replaces the one with the same ID.
func (s *Store) SaveJob(ctx context.Context, job *jobs.IngestJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = job.Clone()
	return nil
}

// GetJob returns a clone of the job. Unknown IDs wrap domain.ErrNotFound.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.IngestJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob: job %s: %w", jobID, domain.ErrNotFound)
	}
	return job.Clone(), nil
}

// ListJobs returns the user's jobs, optionally narrowed to one status, ordered
// by CreatedAt descending with the job ID breaking ties. Offset and Limit page
// through that order; an offset past the end yields an empty slice.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.IngestJob, error) {
	s.mu.RLock()
	matched := make([]*jobs.IngestJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if matchesFilter(job, filter) {
			matched = append(matched, job.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.JobID < b.JobID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	return paginate(matched, filter.Offset, filter.Limit), nil
}

// UpdateJobStatus sets the job's status. A blank errorMsg leaves any
// previously recorded error in place.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("UpdateJobStatus: job %s: %w", jobID, domain.ErrNotFound)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

// matchesFilter treats empty filter fields as wildcards.
func matchesFilter(job *jobs.IngestJob, filter jobs.JobFilter) bool {
	if filter.UserID != "" && job.UserID != filter.UserID {
		return false
	}
	return filter.Status == "" || job.Status == filter.Status
}

func paginate(list []*jobs.IngestJob, offset, limit int) []*jobs.IngestJob {
	if offset >= len(list) {
		return []*jobs.IngestJob{}
	}
	if offset > 0 {
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

var _ jobs.JobStore = (*Store)(nil)
