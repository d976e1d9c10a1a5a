package api

import (
	"context"

	"psfd/internal/services"
	"psfd/internal/store"
)

// JobService exposes read-only job polling.
type JobService struct {
	store *store.Store
}

// NewJobService constructs the job facade.
func NewJobService(st *store.Store) *JobService {
	return &JobService{store: st}
}

// Describe fetches a single job, failing with a not-found marker when
// no such job exists.
func (s *JobService) Describe(ctx context.Context, jobID string) (*JobView, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "job-api", "load", jobID, err)
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "job-api", "load", "job "+jobID+" not found", nil)
	}
	view := FromJob(job)
	return &view, nil
}
