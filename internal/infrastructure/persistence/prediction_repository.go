package persistence

import (
	"context"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPredictionRepository implements PredictionRepository using GORM
type GormPredictionRepository struct {
	db *gorm.DB
}

// NewGormPredictionRepository creates a new GormPredictionRepository
func NewGormPredictionRepository(db *gorm.DB) *GormPredictionRepository {
	return &GormPredictionRepository{db: db}
}

// SaveAll persists a batch of prediction entries
func (r *GormPredictionRepository) SaveAll(ctx context.Context, entries []*ledger.CashFlowPredictionEntry) error {
	if len(entries) == 0 {
		return nil
	}

	entryModels := make([]*models.CashFlowPredictionModel, len(entries))
	for i, entry := range entries {
		entryModels[i] = models.CashFlowPredictionModelFromDomain(entry)
	}
	return r.db.WithContext(ctx).Create(&entryModels).Error
}

// FindByWindow returns prediction entries dated within the window
func (r *GormPredictionRepository) FindByWindow(ctx context.Context, userID uuid.UUID, window ledger.Window) ([]*ledger.CashFlowPredictionEntry, error) {
	var entryModels []models.CashFlowPredictionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, window.Start, window.End).
		Order("date ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}

	entries := make([]*ledger.CashFlowPredictionEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = model.ToDomain()
	}
	return entries, nil
}

// Compile-time interface compliance check
var _ ledger.PredictionRepository = (*GormPredictionRepository)(nil)
