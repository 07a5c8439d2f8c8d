package persistence

import (
	"context"
	"errors"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale by ID for a user
func (r *GormSaleRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*ledger.SaleRecord, error) {
	var model models.SaleRecordModel
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Where("user_id = ? AND id = ?", userID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds a sale by its source system ID
func (r *GormSaleRepository) FindByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (*ledger.SaleRecord, error) {
	var model models.SaleRecordModel
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Where("user_id = ? AND external_id = ?", userID, externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindWithOpenInstallments returns sales that still have unpaid installments
// due in the window
func (r *GormSaleRepository) FindWithOpenInstallments(
	ctx context.Context,
	userID uuid.UUID,
	window ledger.Window,
	walletID *uuid.UUID,
) ([]*ledger.SaleRecord, error) {
	query := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Where("user_id = ?", userID).
		Where("id IN (?)", r.db.Model(&models.InstallmentModel{}).
			Select("sale_id").
			Where("status IN ?", []ledger.InstallmentStatus{ledger.InstallmentPending, ledger.InstallmentOverdue}).
			Where("due_date >= ? AND due_date <= ?", window.Start, window.End))

	if walletID != nil {
		query = query.Where("wallet_id = ?", *walletID)
	}

	var saleModels []models.SaleRecordModel
	if err := query.Order("sale_date ASC").Find(&saleModels).Error; err != nil {
		return nil, err
	}

	sales := make([]*ledger.SaleRecord, len(saleModels))
	for i, model := range saleModels {
		sales[i] = model.ToDomain()
	}
	return sales, nil
}

// Save saves a sale and its installments. A unique-constraint violation on
// (user_id, external_id) surfaces as ErrDuplicateRecord.
func (r *GormSaleRepository) Save(ctx context.Context, sale *ledger.SaleRecord) error {
	model := models.SaleRecordModelFromDomain(sale)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateRecord
		}
		return err
	}
	return nil
}

// Compile-time interface compliance check
var _ ledger.SaleRepository = (*GormSaleRepository)(nil)
