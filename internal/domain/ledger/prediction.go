package ledger

import (
	"time"

	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PredictionSource tags where a cash-flow prediction entry came from
type PredictionSource string

const (
	PredictionSourceInstallment PredictionSource = "INSTALLMENT"
	PredictionSourceRecurring   PredictionSource = "RECURRING"
	PredictionSourceManual      PredictionSource = "MANUAL"
	PredictionSourceImported    PredictionSource = "IMPORTED"
)

// IsValid checks if the prediction source is valid
func (s PredictionSource) IsValid() bool {
	switch s {
	case PredictionSourceInstallment, PredictionSourceRecurring,
		PredictionSourceManual, PredictionSourceImported:
		return true
	}
	return false
}

// CashFlowPredictionEntry is one predicted future cash movement. Confirmed
// installments carry probability 1.0; lower values are reserved for
// speculative/recurring predictions produced elsewhere.
type CashFlowPredictionEntry struct {
	shared.BaseEntity
	UserID        uuid.UUID         `json:"user_id"`
	SaleID        *uuid.UUID        `json:"sale_id,omitempty"`
	InstallmentID *uuid.UUID        `json:"installment_id,omitempty"`
	Amount        valueobject.Money `json:"amount"`
	Date          time.Time         `json:"date"`
	Probability   float64           `json:"probability"`
	Source        PredictionSource  `json:"source"`
}

// NewCashFlowPredictionEntry creates a prediction entry
func NewCashFlowPredictionEntry(
	userID uuid.UUID,
	amount valueobject.Money,
	date time.Time,
	probability float64,
	source PredictionSource,
) (*CashFlowPredictionEntry, error) {
	if !source.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Invalid prediction source tag")
	}
	if probability < 0 || probability > 1 {
		return nil, shared.NewDomainError("INVALID_PROBABILITY", "Probability must be between 0 and 1")
	}

	return &CashFlowPredictionEntry{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Amount:      amount,
		Date:        date,
		Probability: probability,
		Source:      source,
	}, nil
}
