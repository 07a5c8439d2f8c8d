package dto

import (
	"time"

	"github.com/fincore/backend/internal/domain/importing"
)

// CreateImportJobRequest starts a new import job
type CreateImportJobRequest struct {
	Source   string  `json:"source" binding:"required,oneof=bookkeeping bank_feed manual"`
	WalletID *string `json:"wallet_id" binding:"omitempty,uuid"`
}

// RunImportRequest triggers execution of a pending job over a date range
type RunImportRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

// UpdateJobStatusRequest requests a job status transition
type UpdateJobStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=CANCELLED FAILED COMPLETED"`
}

// ImportJobListRequest filters the job list
type ImportJobListRequest struct {
	ListRequest
	Source      string `form:"source" binding:"omitempty,oneof=bookkeeping bank_feed manual"`
	Status      string `form:"status" binding:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED FAILED CANCELLED"`
	StartedFrom string `form:"started_from" binding:"omitempty,datetime=2006-01-02"`
	StartedTo   string `form:"started_to" binding:"omitempty,datetime=2006-01-02"`
}

// CountersResponse mirrors the job's item tallies
type CountersResponse struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Error    int `json:"error"`
}

// ImportJobResponse is the API view of an import job
type ImportJobResponse struct {
	ID              string           `json:"id"`
	Source          string           `json:"source"`
	WalletID        *string          `json:"wallet_id,omitempty"`
	Status          string           `json:"status"`
	Progress        float64          `json:"progress"`
	Counters        CountersResponse `json:"counters"`
	Summary         string           `json:"summary"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	DurationSeconds *int64           `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewImportJobResponse converts a job aggregate to its API representation
func NewImportJobResponse(job *importing.ImportJob) ImportJobResponse {
	resp := ImportJobResponse{
		ID:              job.ID.String(),
		Source:          string(job.Source),
		Status:          string(job.Status),
		Progress:        job.Progress(),
		Summary:         job.Summary(),
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
		DurationSeconds: job.DurationSeconds,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		Counters: CountersResponse{
			Total:    job.Counters.Total,
			Imported: job.Counters.Imported,
			Skipped:  job.Counters.Skipped,
			Error:    job.Counters.Error,
		},
	}
	if job.WalletID != nil {
		walletID := job.WalletID.String()
		resp.WalletID = &walletID
	}
	return resp
}

// ImportJobListResponse is a page of import jobs
type ImportJobListResponse struct {
	Items []ImportJobResponse `json:"items"`
}

// NewImportJobListResponse converts a list result to its API representation
func NewImportJobListResponse(result *importing.JobListResult) ImportJobListResponse {
	items := make([]ImportJobResponse, len(result.Items))
	for i, job := range result.Items {
		items[i] = NewImportJobResponse(job)
	}
	return ImportJobListResponse{Items: items}
}
