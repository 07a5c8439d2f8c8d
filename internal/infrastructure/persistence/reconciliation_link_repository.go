package persistence

import (
	"context"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReconciliationLinkRepository implements ReconciliationLinkRepository using GORM
type GormReconciliationLinkRepository struct {
	db *gorm.DB
}

// NewGormReconciliationLinkRepository creates a new GormReconciliationLinkRepository
func NewGormReconciliationLinkRepository(db *gorm.DB) *GormReconciliationLinkRepository {
	return &GormReconciliationLinkRepository{db: db}
}

// Save persists a new link
func (r *GormReconciliationLinkRepository) Save(ctx context.Context, link *ledger.ReconciliationLink) error {
	model := models.ReconciliationLinkModelFromDomain(link)
	return r.db.WithContext(ctx).Save(model).Error
}

// CountByMethod counts a user's links created with the given method
func (r *GormReconciliationLinkRepository) CountByMethod(ctx context.Context, userID uuid.UUID, method ledger.LinkMethod) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ReconciliationLinkModel{}).
		Where("user_id = ? AND method = ?", userID, method).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByInstallment returns the links attached to an installment
func (r *GormReconciliationLinkRepository) FindByInstallment(ctx context.Context, userID, installmentID uuid.UUID) ([]*ledger.ReconciliationLink, error) {
	var linkModels []models.ReconciliationLinkModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND installment_id = ?", userID, installmentID).
		Order("created_at DESC").
		Find(&linkModels).Error; err != nil {
		return nil, err
	}

	links := make([]*ledger.ReconciliationLink, len(linkModels))
	for i, model := range linkModels {
		link, err := model.ToDomain()
		if err != nil {
			return nil, err
		}
		links[i] = link
	}
	return links, nil
}

// Compile-time interface compliance check
var _ ledger.ReconciliationLinkRepository = (*GormReconciliationLinkRepository)(nil)
