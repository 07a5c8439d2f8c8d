package models

import (
	"time"

	"github.com/fincore/backend/internal/domain/importing"
	"github.com/google/uuid"
)

// ImportJobModel is the persistence model for the ImportJob aggregate.
type ImportJobModel struct {
	UserAggregateModel
	Source          importing.ImportSource `gorm:"type:varchar(20);not null;index"`
	WalletID        *uuid.UUID             `gorm:"type:uuid;index"`
	Status          importing.JobStatus    `gorm:"type:varchar(20);not null;index;default:'PENDING'"`
	StartedAt       time.Time              `gorm:"type:timestamptz;not null"`
	CompletedAt     *time.Time             `gorm:"type:timestamptz"`
	DurationSeconds *int64
	TotalItems      int     `gorm:"not null;default:0"`
	ImportedItems   int     `gorm:"not null;default:0"`
	SkippedItems    int     `gorm:"not null;default:0"`
	ErrorItems      int     `gorm:"not null;default:0"`
	LastProgress    float64 `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ImportJobModel) TableName() string {
	return "import_jobs"
}

// ToDomain converts the persistence model to a domain ImportJob aggregate.
func (m *ImportJobModel) ToDomain() *importing.ImportJob {
	job := &importing.ImportJob{
		Source:          m.Source,
		WalletID:        m.WalletID,
		Status:          m.Status,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
		DurationSeconds: m.DurationSeconds,
		Counters: importing.Counters{
			Total:    m.TotalItems,
			Imported: m.ImportedItems,
			Skipped:  m.SkippedItems,
			Error:    m.ErrorItems,
		},
		LastProgress: m.LastProgress,
	}
	m.PopulateUserAggregateRoot(&job.UserAggregateRoot)
	return job
}

// FromDomain populates the persistence model from a domain ImportJob aggregate.
func (m *ImportJobModel) FromDomain(j *importing.ImportJob) {
	m.FromDomainUserAggregateRoot(j.UserAggregateRoot)
	m.Source = j.Source
	m.WalletID = j.WalletID
	m.Status = j.Status
	m.StartedAt = j.StartedAt
	m.CompletedAt = j.CompletedAt
	m.DurationSeconds = j.DurationSeconds
	m.TotalItems = j.Counters.Total
	m.ImportedItems = j.Counters.Imported
	m.SkippedItems = j.Counters.Skipped
	m.ErrorItems = j.Counters.Error
	m.LastProgress = j.LastProgress
}

// ImportJobModelFromDomain creates a new persistence model from a domain ImportJob.
func ImportJobModelFromDomain(j *importing.ImportJob) *ImportJobModel {
	m := &ImportJobModel{}
	m.FromDomain(j)
	return m
}
