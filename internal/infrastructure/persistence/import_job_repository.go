package persistence

import (
	"context"
	"errors"

	"github.com/fincore/backend/internal/domain/importing"
	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormImportJobRepository implements ImportJobRepository using GORM
type GormImportJobRepository struct {
	db *gorm.DB
}

// NewGormImportJobRepository creates a new GormImportJobRepository
func NewGormImportJobRepository(db *gorm.DB) *GormImportJobRepository {
	return &GormImportJobRepository{db: db}
}

// FindByID finds an import job by ID for a user
func (r *GormImportJobRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*importing.ImportJob, error) {
	var model models.ImportJobModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns import jobs for a user with pagination and filtering
func (r *GormImportJobRepository) FindAll(
	ctx context.Context,
	userID uuid.UUID,
	filter importing.JobFilter,
	page, pageSize int,
) (*importing.JobListResult, error) {
	query := r.db.WithContext(ctx).Model(&models.ImportJobModel{}).
		Where("user_id = ?", userID)

	query = r.applyFilters(query, filter)

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, err
	}

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		query = query.Offset(offset).Limit(pageSize)
	}

	query = query.Order("started_at DESC, created_at DESC")

	var jobModels []models.ImportJobModel
	if err := query.Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]*importing.ImportJob, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = model.ToDomain()
	}

	return &importing.JobListResult{
		Items:      jobs,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// FindByStatus finds all jobs with a specific status
func (r *GormImportJobRepository) FindByStatus(
	ctx context.Context,
	userID uuid.UUID,
	status importing.JobStatus,
) ([]*importing.ImportJob, error) {
	var jobModels []models.ImportJobModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Order("created_at DESC").
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]*importing.ImportJob, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = model.ToDomain()
	}
	return jobs, nil
}

// Save saves an import job (create or update)
func (r *GormImportJobRepository) Save(ctx context.Context, job *importing.ImportJob) error {
	model := models.ImportJobModelFromDomain(job)
	return r.db.WithContext(ctx).Save(model).Error
}

// applyFilters applies filter options to the query
func (r *GormImportJobRepository) applyFilters(query *gorm.DB, filter importing.JobFilter) *gorm.DB {
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.WalletID != nil {
		query = query.Where("wallet_id = ?", *filter.WalletID)
	}
	if filter.StartedFrom != nil {
		query = query.Where("started_at >= ?", *filter.StartedFrom)
	}
	if filter.StartedTo != nil {
		query = query.Where("started_at <= ?", *filter.StartedTo)
	}
	return query
}

// Compile-time interface compliance check
var _ importing.ImportJobRepository = (*GormImportJobRepository)(nil)
