package importing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobFilter defines the filters for querying import jobs
type JobFilter struct {
	Source      *ImportSource
	Status      *JobStatus
	WalletID    *uuid.UUID
	StartedFrom *time.Time
	StartedTo   *time.Time
}

// JobListResult represents a paginated list of import jobs
type JobListResult struct {
	Items      []*ImportJob
	TotalCount int64
	Page       int
	PageSize   int
}

// ImportJobRepository defines the interface for import job persistence
type ImportJobRepository interface {
	// FindByID finds an import job by ID for a user
	FindByID(ctx context.Context, userID, id uuid.UUID) (*ImportJob, error)

	// FindAll returns import jobs for a user with pagination and filtering
	FindAll(ctx context.Context, userID uuid.UUID, filter JobFilter, page, pageSize int) (*JobListResult, error)

	// FindByStatus finds all jobs with a specific status
	FindByStatus(ctx context.Context, userID uuid.UUID, status JobStatus) ([]*ImportJob, error)

	// Save saves an import job (create or update)
	Save(ctx context.Context, job *ImportJob) error
}

// NotificationSink informs the initiating user of job completion or failure.
// Delivery is fire-and-forget; a sink error must never fail the job.
type NotificationSink interface {
	NotifyJobFinished(ctx context.Context, job *ImportJob)
}
