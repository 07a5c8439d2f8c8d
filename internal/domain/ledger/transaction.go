package ledger

import (
	"time"

	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ReconciliationMetadata records how a transaction was linked to a sale
// installment. Nil means the transaction is unreconciled.
type ReconciliationMetadata struct {
	LinkedSaleID        uuid.UUID `json:"linked_sale_id"`
	LinkedInstallmentID uuid.UUID `json:"linked_installment_id"`
	Confidence          float64   `json:"confidence"`
	IsManual            bool      `json:"is_manual"`
	IsPartOfGroup       bool      `json:"is_part_of_group"`
	GroupSize           int       `json:"group_size"`
}

// LedgerTransaction is a bank/ledger movement imported from an external source
type LedgerTransaction struct {
	shared.UserAggregateRoot
	WalletID       *uuid.UUID              `json:"wallet_id,omitempty"`
	Amount         valueobject.Money       `json:"amount"`
	Date           time.Time               `json:"date"`
	Description    string                  `json:"description"`
	Fingerprint    string                  `json:"fingerprint"`
	Reconciliation *ReconciliationMetadata `json:"reconciliation,omitempty"`
}

// NewLedgerTransaction creates an unreconciled ledger transaction
func NewLedgerTransaction(
	userID uuid.UUID,
	walletID *uuid.UUID,
	amount valueobject.Money,
	date time.Time,
	description string,
	fingerprint string,
) (*LedgerTransaction, error) {
	if amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Transaction amount cannot be zero")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Transaction date is required")
	}
	if fingerprint == "" {
		return nil, shared.NewDomainError("INVALID_FINGERPRINT", "Transaction fingerprint is required")
	}

	return &LedgerTransaction{
		UserAggregateRoot: shared.NewUserAggregateRoot(userID),
		WalletID:          walletID,
		Amount:            amount,
		Date:              date,
		Description:       description,
		Fingerprint:       fingerprint,
	}, nil
}

// IsReconciled returns true if the transaction is linked to an installment
func (t *LedgerTransaction) IsReconciled() bool {
	return t.Reconciliation != nil
}

// LinkTo records the reconciliation outcome on the transaction.
// Linking an already-linked transaction is an invalid state transition.
func (t *LedgerTransaction) LinkTo(saleID, installmentID uuid.UUID, confidence float64, manual bool, groupSize int) error {
	if t.IsReconciled() {
		return shared.ErrInvalidState
	}
	if groupSize < 1 {
		groupSize = 1
	}
	t.Reconciliation = &ReconciliationMetadata{
		LinkedSaleID:        saleID,
		LinkedInstallmentID: installmentID,
		Confidence:          confidence,
		IsManual:            manual,
		IsPartOfGroup:       groupSize > 1,
		GroupSize:           groupSize,
	}
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	return nil
}

// Unlink clears the reconciliation metadata, returning the transaction to
// the unmatched pool
func (t *LedgerTransaction) Unlink() error {
	if !t.IsReconciled() {
		return shared.ErrInvalidState
	}
	t.Reconciliation = nil
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	return nil
}

// LinkMethod distinguishes automatic from manually-confirmed links
type LinkMethod string

const (
	LinkMethodAutomatic LinkMethod = "AUTOMATIC"
	LinkMethodManual    LinkMethod = "MANUAL"
)

// ReconciliationLink ties one or more ledger transactions to the installment
// they economically represent. Multiple transaction IDs form an N:1 match.
type ReconciliationLink struct {
	shared.BaseEntity
	UserID         uuid.UUID   `json:"user_id"`
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
	SaleID         uuid.UUID   `json:"sale_id"`
	InstallmentID  uuid.UUID   `json:"installment_id"`
	Confidence     float64     `json:"confidence"`
	Method         LinkMethod  `json:"method"`
}

// NewReconciliationLink creates a link between transactions and an installment
func NewReconciliationLink(
	userID uuid.UUID,
	transactionIDs []uuid.UUID,
	saleID, installmentID uuid.UUID,
	confidence float64,
	method LinkMethod,
) (*ReconciliationLink, error) {
	if len(transactionIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_LINK", "A link requires at least one transaction")
	}
	if confidence < 0 || confidence > 1 {
		return nil, shared.NewDomainError("INVALID_CONFIDENCE", "Confidence must be between 0 and 1")
	}

	return &ReconciliationLink{
		BaseEntity:     shared.NewBaseEntity(),
		UserID:         userID,
		TransactionIDs: transactionIDs,
		SaleID:         saleID,
		InstallmentID:  installmentID,
		Confidence:     confidence,
		Method:         method,
	}, nil
}

// IsGroup returns true for N:1 links
func (l *ReconciliationLink) IsGroup() bool {
	return len(l.TransactionIDs) > 1
}
