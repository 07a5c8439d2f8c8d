package ledger

import (
	"context"
	"time"

	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// RecordKind distinguishes the external record types the import understands
type RecordKind string

const (
	RecordKindSale        RecordKind = "SALE"
	RecordKindTransaction RecordKind = "TRANSACTION"
)

// ExternalInstallment is one installment as reported by the source system
type ExternalInstallment struct {
	Number  int
	Amount  valueobject.Money
	DueDate time.Time
}

// ExternalRecord is one raw record fetched from a third-party bookkeeping
// system, before dedup and persistence
type ExternalRecord struct {
	ExternalID       string
	Kind             RecordKind
	Customer         string
	Description      string
	Amount           valueobject.Money
	Date             time.Time
	InstallmentCount int
	Installments     []ExternalInstallment
}

// Validate classifies malformed records. A validation failure is not
// retryable; the record is counted as skipped.
func (r ExternalRecord) Validate() error {
	if r.ExternalID == "" {
		return shared.NewDomainError("IMPORT_VALIDATION", "External record is missing its ID")
	}
	if r.Date.IsZero() {
		return shared.NewDomainError("IMPORT_VALIDATION", "External record is missing its date")
	}
	switch r.Kind {
	case RecordKindSale:
		if !r.Amount.IsPositive() {
			return shared.NewDomainError("IMPORT_VALIDATION", "Sale record amount must be positive")
		}
	case RecordKindTransaction:
		if r.Amount.IsZero() {
			return shared.NewDomainError("IMPORT_VALIDATION", "Transaction record amount cannot be zero")
		}
	default:
		return shared.NewDomainError("IMPORT_VALIDATION", "Unknown external record kind")
	}
	return nil
}

// DedupKey returns the stable field used for fingerprinting: the external ID
// when present, otherwise the description
func (r ExternalRecord) DedupKey() string {
	if r.ExternalID != "" {
		return r.ExternalID
	}
	return r.Description
}

// FetchRequest asks the source for a page of records in a date range
type FetchRequest struct {
	UserID   uuid.UUID
	Start    time.Time
	End      time.Time
	Page     int
	PageSize int
}

// FetchResponse is one page of external records
type FetchResponse struct {
	Records  []ExternalRecord
	HasMore  bool
	NextPage int
}

// ExternalSalesSource fetches paginated sale/installment/transaction records
// for a date range. Implementations own credential handling.
type ExternalSalesSource interface {
	FetchRecords(ctx context.Context, req FetchRequest) (*FetchResponse, error)
}
