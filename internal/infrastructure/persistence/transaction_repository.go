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

// GormTransactionRepository implements TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a transaction by ID for a user
func (r *GormTransactionRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*ledger.LedgerTransaction, error) {
	var model models.LedgerTransactionModel
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

// FindUnreconciled returns transactions without a reconciliation link in the
// window, optionally restricted to one wallet
func (r *GormTransactionRepository) FindUnreconciled(
	ctx context.Context,
	userID uuid.UUID,
	window ledger.Window,
	walletID *uuid.UUID,
) ([]*ledger.LedgerTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND linked_sale_id IS NULL", userID).
		Where("date >= ? AND date <= ?", window.Start, window.End)

	if walletID != nil {
		query = query.Where("wallet_id = ?", *walletID)
	}

	var txnModels []models.LedgerTransactionModel
	if err := query.Order("date ASC").Find(&txnModels).Error; err != nil {
		return nil, err
	}

	txns := make([]*ledger.LedgerTransaction, len(txnModels))
	for i, model := range txnModels {
		txns[i] = model.ToDomain()
	}
	return txns, nil
}

// ExistsByFingerprint checks the authoritative dedup constraint
func (r *GormTransactionRepository) ExistsByFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.LedgerTransactionModel{}).
		Where("user_id = ? AND fingerprint = ?", userID, fingerprint).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save saves a transaction (create or update). A unique-constraint violation
// on the fingerprint surfaces as ErrDuplicateRecord.
func (r *GormTransactionRepository) Save(ctx context.Context, txn *ledger.LedgerTransaction) error {
	model := models.LedgerTransactionModelFromDomain(txn)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateRecord
		}
		return err
	}
	return nil
}

// Compile-time interface compliance check
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
