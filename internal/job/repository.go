package job

import "context"

// Repository defines the interface for job persistence.
type Repository interface {
	// Save persists a job to the storage.
	// If the job already exists, it should be updated.
	Save(ctx context.Context, job *Job) error

	// ListByRun returns the jobs of a run in the order they were first saved.
	ListByRun(ctx context.Context, runID string) ([]*Job, error)
}
