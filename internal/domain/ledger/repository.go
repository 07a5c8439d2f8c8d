package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Window restricts queries to a date range (inclusive)
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// TransactionRepository defines the interface for ledger transaction persistence
type TransactionRepository interface {
	// FindByID finds a transaction by ID for a user
	FindByID(ctx context.Context, userID, id uuid.UUID) (*LedgerTransaction, error)

	// FindUnreconciled returns transactions without a reconciliation link in
	// the window, optionally restricted to one wallet
	FindUnreconciled(ctx context.Context, userID uuid.UUID, window Window, walletID *uuid.UUID) ([]*LedgerTransaction, error)

	// ExistsByFingerprint checks the authoritative dedup constraint
	ExistsByFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (bool, error)

	// Save saves a transaction (create or update)
	Save(ctx context.Context, txn *LedgerTransaction) error
}

// SaleRepository defines the interface for sale record persistence
type SaleRepository interface {
	// FindByID finds a sale by ID for a user
	FindByID(ctx context.Context, userID, id uuid.UUID) (*SaleRecord, error)

	// FindByExternalID finds a sale by its source system ID
	FindByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (*SaleRecord, error)

	// FindWithOpenInstallments returns sales that still have unpaid
	// installments due in the window
	FindWithOpenInstallments(ctx context.Context, userID uuid.UUID, window Window, walletID *uuid.UUID) ([]*SaleRecord, error)

	// Save saves a sale and its installments
	Save(ctx context.Context, sale *SaleRecord) error
}

// ReconciliationLinkRepository defines the interface for link persistence
type ReconciliationLinkRepository interface {
	// Save persists a new link
	Save(ctx context.Context, link *ReconciliationLink) error

	// CountByMethod counts a user's links created with the given method.
	// The MANUAL count drives the automatic-reconciliation readiness gate.
	CountByMethod(ctx context.Context, userID uuid.UUID, method LinkMethod) (int64, error)

	// FindByInstallment returns the links attached to an installment
	FindByInstallment(ctx context.Context, userID, installmentID uuid.UUID) ([]*ReconciliationLink, error)
}

// PredictionRepository defines the interface for cash-flow prediction persistence
type PredictionRepository interface {
	// SaveAll persists a batch of prediction entries
	SaveAll(ctx context.Context, entries []*CashFlowPredictionEntry) error

	// FindByWindow returns prediction entries dated within the window
	FindByWindow(ctx context.Context, userID uuid.UUID, window Window) ([]*CashFlowPredictionEntry, error)
}
