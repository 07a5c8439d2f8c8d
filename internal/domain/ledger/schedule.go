package ledger

import (
	"fmt"

	"github.com/fincore/backend/internal/domain/shared"
)

// ExpandSchedule turns one sale with N installments into N predicted
// cash-flow entries, cent-exact.
//
// When the sale carries explicit per-installment amounts and dates, each
// installment is emitted unchanged. When only the total amount and the
// installment count are known, the total is divided evenly with the rounding
// remainder on the last installment, and due dates fall monthly starting one
// month after the sale date.
//
// Every entry is tagged INSTALLMENT with probability 1.0 (the schedule is
// confirmed, not speculative).
func ExpandSchedule(sale *SaleRecord) ([]*CashFlowPredictionEntry, error) {
	if sale == nil {
		return nil, shared.NewDomainError("INVALID_SALE", "Sale cannot be nil")
	}

	if sale.HasExplicitSchedule() {
		return expandExplicit(sale)
	}
	return expandDerived(sale)
}

func expandExplicit(sale *SaleRecord) ([]*CashFlowPredictionEntry, error) {
	if err := sale.validateSchedule(); err != nil {
		return nil, err
	}

	entries := make([]*CashFlowPredictionEntry, 0, len(sale.Installments))
	for i := range sale.Installments {
		inst := &sale.Installments[i]
		entry, err := NewCashFlowPredictionEntry(sale.UserID, inst.Amount, inst.DueDate, 1.0, PredictionSourceInstallment)
		if err != nil {
			return nil, err
		}
		entry.SaleID = &sale.ID
		entry.InstallmentID = &inst.ID
		entries = append(entries, entry)
	}
	return entries, nil
}

func expandDerived(sale *SaleRecord) ([]*CashFlowPredictionEntry, error) {
	n := sale.InstallmentCount
	if n <= 0 {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT_COUNT",
			fmt.Sprintf("Cannot expand sale %s without installments or a count", sale.ExternalID))
	}

	amounts, err := sale.TotalAmount.Allocate(n)
	if err != nil {
		return nil, shared.NewDomainError("SCHEDULE_MISMATCH", err.Error())
	}

	entries := make([]*CashFlowPredictionEntry, 0, n)
	for i, amount := range amounts {
		dueDate := sale.SaleDate.AddDate(0, i+1, 0)
		entry, err := NewCashFlowPredictionEntry(sale.UserID, amount, dueDate, 1.0, PredictionSourceInstallment)
		if err != nil {
			return nil, err
		}
		entry.SaleID = &sale.ID
		entries = append(entries, entry)
	}
	return entries, nil
}
