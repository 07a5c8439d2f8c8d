package ledger

import (
	"fmt"
	"time"

	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// InstallmentStatus represents the payment state of a single installment
type InstallmentStatus string

const (
	InstallmentPending  InstallmentStatus = "PENDING"
	InstallmentPaid     InstallmentStatus = "PAID"
	InstallmentCanceled InstallmentStatus = "CANCELED"
	InstallmentOverdue  InstallmentStatus = "OVERDUE"
)

// IsValid checks if the installment status is valid
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentCanceled, InstallmentOverdue:
		return true
	}
	return false
}

// IsOpen returns true if the installment can still receive payments
func (s InstallmentStatus) IsOpen() bool {
	return s == InstallmentPending || s == InstallmentOverdue
}

// Installment is one scheduled payment within a multi-payment sale
type Installment struct {
	ID         uuid.UUID         `json:"id"`
	Number     int               `json:"number"`
	TotalCount int               `json:"total_count"`
	Amount     valueobject.Money `json:"amount"`
	DueDate    time.Time         `json:"due_date"`
	Status     InstallmentStatus `json:"status"`
}

// SaleRecord is a sale imported from an external bookkeeping system.
// Either Installments carries the explicit per-installment schedule, or
// InstallmentCount is set and the schedule is derived by the expander.
//
// Invariant: when installments are explicit, their amounts sum to TotalAmount
// exactly (cent-accurate).
type SaleRecord struct {
	shared.UserAggregateRoot
	ExternalID       string            `json:"external_id"`
	Customer         string            `json:"customer"`
	TotalAmount      valueobject.Money `json:"total_amount"`
	SaleDate         time.Time         `json:"sale_date"`
	WalletID         *uuid.UUID        `json:"wallet_id,omitempty"`
	InstallmentCount int               `json:"installment_count"`
	Installments     []Installment     `json:"installments,omitempty"`
}

// NewSaleRecord creates a sale with an explicit installment schedule.
// The installment amounts must sum to the total exactly.
func NewSaleRecord(
	userID uuid.UUID,
	externalID, customer string,
	totalAmount valueobject.Money,
	saleDate time.Time,
	installments []Installment,
) (*SaleRecord, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External ID cannot be empty")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Sale total must be positive")
	}

	sale := &SaleRecord{
		UserAggregateRoot: shared.NewUserAggregateRoot(userID),
		ExternalID:        externalID,
		Customer:          customer,
		TotalAmount:       totalAmount,
		SaleDate:          saleDate,
		InstallmentCount:  len(installments),
		Installments:      installments,
	}

	if len(installments) > 0 {
		if err := sale.validateSchedule(); err != nil {
			return nil, err
		}
	}
	return sale, nil
}

// NewSaleRecordWithCount creates a sale that only knows its total amount and
// the number of installments; the expander derives the schedule.
func NewSaleRecordWithCount(
	userID uuid.UUID,
	externalID, customer string,
	totalAmount valueobject.Money,
	saleDate time.Time,
	installmentCount int,
) (*SaleRecord, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External ID cannot be empty")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Sale total must be positive")
	}
	if installmentCount <= 0 {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT_COUNT", "Installment count must be positive")
	}

	return &SaleRecord{
		UserAggregateRoot: shared.NewUserAggregateRoot(userID),
		ExternalID:        externalID,
		Customer:          customer,
		TotalAmount:       totalAmount,
		SaleDate:          saleDate,
		InstallmentCount:  installmentCount,
	}, nil
}

// HasExplicitSchedule returns true when per-installment amounts and dates
// came from the external source
func (s *SaleRecord) HasExplicitSchedule() bool {
	return len(s.Installments) > 0
}

// validateSchedule checks the cent-exact sum invariant
func (s *SaleRecord) validateSchedule() error {
	sum := valueobject.Zero(s.TotalAmount.Currency())
	for _, inst := range s.Installments {
		var err error
		sum, err = sum.Add(inst.Amount)
		if err != nil {
			return shared.NewDomainError("CURRENCY_MISMATCH", err.Error())
		}
	}
	if !sum.Equals(s.TotalAmount) {
		return shared.NewDomainError("SCHEDULE_MISMATCH",
			fmt.Sprintf("Installment amounts sum to %s, expected %s", sum, s.TotalAmount))
	}
	return nil
}

// OpenInstallments returns the installments that can still receive payments
func (s *SaleRecord) OpenInstallments() []Installment {
	open := make([]Installment, 0, len(s.Installments))
	for _, inst := range s.Installments {
		if inst.Status.IsOpen() {
			open = append(open, inst)
		}
	}
	return open
}

// OpenInstallment is the matcher's view of an unpaid installment: the
// installment itself plus the sale context it belongs to.
type OpenInstallment struct {
	SaleID        uuid.UUID
	InstallmentID uuid.UUID
	Number        int
	Amount        valueobject.Money
	DueDate       time.Time
	WalletID      *uuid.UUID
}

// OpenInstallmentsOf flattens a set of sales into matcher inputs
func OpenInstallmentsOf(sales []*SaleRecord) []OpenInstallment {
	var out []OpenInstallment
	for _, sale := range sales {
		for _, inst := range sale.OpenInstallments() {
			out = append(out, OpenInstallment{
				SaleID:        sale.ID,
				InstallmentID: inst.ID,
				Number:        inst.Number,
				Amount:        inst.Amount,
				DueDate:       inst.DueDate,
				WalletID:      sale.WalletID,
			})
		}
	}
	return out
}
