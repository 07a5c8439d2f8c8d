package importing

import (
	"fmt"
	"time"

	"github.com/fincore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ImportSource identifies the external system a job pulls records from
type ImportSource string

const (
	SourceBookkeeping ImportSource = "bookkeeping"
	SourceBankFeed    ImportSource = "bank_feed"
	SourceManual      ImportSource = "manual"
)

// IsValid checks if the import source is valid
func (s ImportSource) IsValid() bool {
	switch s {
	case SourceBookkeeping, SourceBankFeed, SourceManual:
		return true
	}
	return false
}

// JobStatus represents the lifecycle state of an import job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusInProgress, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Counters holds the per-job item tallies. Updates are additive and assume a
// single writer per job; concurrent writers need external locking.
type Counters struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Error    int `json:"error"`
}

// Processed returns the number of items with a settled outcome
func (c Counters) Processed() int {
	return c.Imported + c.Skipped + c.Error
}

// Progress phase constants. A job spends 5% in PENDING, the structural phase
// (fetching, nothing counted yet) pins IN_PROGRESS at 25%, and item
// processing fills the remaining 70 points.
const (
	progressPending    = 5.0
	progressStructural = 25.0
	progressItemSpan   = 70.0
	progressCapped     = 95.0
)

// ImportJob tracks one import run against an external source.
// Created PENDING, mutated only by the job's own executor, immutable once a
// terminal status is reached.
type ImportJob struct {
	shared.UserAggregateRoot
	Source          ImportSource `json:"source"`
	WalletID        *uuid.UUID   `json:"wallet_id,omitempty"`
	Status          JobStatus    `json:"status"`
	StartedAt       time.Time    `json:"started_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	DurationSeconds *int64       `json:"duration_seconds,omitempty"`
	Counters        Counters     `json:"counters"`

	// LastProgress is the most recent derived progress percentage. It exists
	// so a job that fails before any item is counted can keep reporting its
	// last known value.
	LastProgress float64 `json:"last_progress"`
}

// NewImportJob creates a new import job in PENDING state
func NewImportJob(userID uuid.UUID, source ImportSource, walletID *uuid.UUID) (*ImportJob, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", fmt.Sprintf("Invalid import source: %s", source))
	}

	return &ImportJob{
		UserAggregateRoot: shared.NewUserAggregateRoot(userID),
		Source:            source,
		WalletID:          walletID,
		Status:            JobStatusPending,
		StartedAt:         time.Now(),
		LastProgress:      progressPending,
	}, nil
}

// Start transitions the job from PENDING to IN_PROGRESS with the known item
// count. A total of zero is allowed; it marks the structural phase.
func (j *ImportJob) Start(total int) error {
	if j.Status != JobStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start job from state: %s", j.Status))
	}
	if total < 0 {
		return shared.NewDomainError("INVALID_TOTAL", "Total item count cannot be negative")
	}

	j.Status = JobStatusInProgress
	j.Counters.Total = total
	j.RecordProgress()
	j.touch()
	return nil
}

// AddToTotal increases the known item count while the job is running.
// Paginated sources discover the total incrementally.
func (j *ImportJob) AddToTotal(delta int) error {
	if j.Status != JobStatusInProgress {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update counters in state: %s", j.Status))
	}
	j.Counters.Total += delta
	j.RecordProgress()
	j.touch()
	return nil
}

// AddImported adds to the imported counter
func (j *ImportJob) AddImported(delta int) error {
	return j.addCounter(&j.Counters.Imported, delta)
}

// AddSkipped adds to the skipped counter
func (j *ImportJob) AddSkipped(delta int) error {
	return j.addCounter(&j.Counters.Skipped, delta)
}

// AddErrored adds to the error counter
func (j *ImportJob) AddErrored(delta int) error {
	return j.addCounter(&j.Counters.Error, delta)
}

func (j *ImportJob) addCounter(field *int, delta int) error {
	if j.Status != JobStatusInProgress {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update counters in state: %s", j.Status))
	}
	if delta < 0 {
		return shared.NewDomainError("INVALID_DELTA", "Counter deltas must be non-negative")
	}
	*field += delta
	j.RecordProgress()
	j.touch()
	return nil
}

// Complete marks the job as successfully finished
func (j *ImportJob) Complete() error {
	if j.Status != JobStatusInProgress {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete job from state: %s", j.Status))
	}
	j.finish(JobStatusCompleted)
	return nil
}

// Fail marks the job as failed, preserving partial counters
func (j *ImportJob) Fail() error {
	if j.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail job from terminal state: %s", j.Status))
	}
	j.finish(JobStatusFailed)
	return nil
}

// Cancel marks the job as cancelled
func (j *ImportJob) Cancel() error {
	if j.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel job from terminal state: %s", j.Status))
	}
	j.finish(JobStatusCancelled)
	return nil
}

// finish performs the terminal transition: end time and duration are stamped
// exactly once, in the same mutation as the status change.
func (j *ImportJob) finish(status JobStatus) {
	now := time.Now()
	duration := int64(now.Sub(j.StartedAt).Seconds())
	j.Status = status
	j.CompletedAt = &now
	j.DurationSeconds = &duration
	j.touch()
}

func (j *ImportJob) touch() {
	j.UpdatedAt = time.Now()
	j.IncrementVersion()
}

// Progress derives the progress percentage from the job state:
//
//	PENDING                       5
//	IN_PROGRESS, total == 0       25 (structural phase)
//	IN_PROGRESS, total > 0        25 + 70 * processed/total
//	COMPLETED                     100
//	FAILED/CANCELLED, total > 0   min(95, 25 + 70 * processed/total)
//	FAILED/CANCELLED, total == 0  last known value
func (j *ImportJob) Progress() float64 {
	switch j.Status {
	case JobStatusPending:
		return progressPending
	case JobStatusCompleted:
		return 100
	case JobStatusInProgress:
		if j.Counters.Total == 0 {
			return progressStructural
		}
		return j.itemProgress()
	case JobStatusFailed, JobStatusCancelled:
		if j.Counters.Total == 0 {
			return j.LastProgress
		}
		return min(progressCapped, j.itemProgress())
	}
	return j.LastProgress
}

func (j *ImportJob) itemProgress() float64 {
	ratio := float64(j.Counters.Processed()) / float64(j.Counters.Total)
	return progressStructural + progressItemSpan*ratio
}

// RecordProgress snapshots the current derived progress into LastProgress
func (j *ImportJob) RecordProgress() {
	j.LastProgress = j.Progress()
}

// Summary describes the outcome in user-facing terms, valid even for a job
// that failed partway through.
func (j *ImportJob) Summary() string {
	return fmt.Sprintf("%d of %d imported, %d skipped, %d failed",
		j.Counters.Imported, j.Counters.Total, j.Counters.Skipped, j.Counters.Error)
}

// SuccessRate returns the imported share as a percentage (0-100)
func (j *ImportJob) SuccessRate() float64 {
	if j.Counters.Total == 0 {
		return 0
	}
	return float64(j.Counters.Imported) / float64(j.Counters.Total) * 100
}

// Duration returns the elapsed time; for a running job it is measured up to now
func (j *ImportJob) Duration() time.Duration {
	if j.DurationSeconds != nil {
		return time.Duration(*j.DurationSeconds) * time.Second
	}
	return time.Since(j.StartedAt)
}
