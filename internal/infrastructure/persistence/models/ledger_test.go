package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/shared"
)

func TestReconciliationLinkModel_ToDomain(t *testing.T) {
	userID := uuid.New()
	txnIDs := []uuid.UUID{uuid.New(), uuid.New()}

	link, err := ledger.NewReconciliationLink(
		userID, txnIDs, uuid.New(), uuid.New(), 0.95, ledger.LinkMethodAutomatic)
	require.NoError(t, err)

	t.Run("round trips transaction IDs", func(t *testing.T) {
		model := ReconciliationLinkModelFromDomain(link)

		restored, err := model.ToDomain()
		require.NoError(t, err)
		assert.Equal(t, link.ID, restored.ID)
		assert.Equal(t, txnIDs, restored.TransactionIDs)
		assert.True(t, restored.IsGroup())
	})

	t.Run("corrupt transaction IDs column is an error", func(t *testing.T) {
		model := &ReconciliationLinkModel{
			BaseModel:      BaseModel{ID: link.ID},
			UserID:         userID,
			TransactionIDs: "{not json",
			SaleID:         link.SaleID,
			InstallmentID:  link.InstallmentID,
			Confidence:     link.Confidence,
			Method:         link.Method,
		}

		_, err := model.ToDomain()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transaction_ids")
	})

	t.Run("empty column yields no transactions", func(t *testing.T) {
		model := &ReconciliationLinkModel{BaseModel: BaseModel{ID: uuid.New()}}

		restored, err := model.ToDomain()
		require.NoError(t, err)
		assert.Empty(t, restored.TransactionIDs)
	})
}

func TestLedgerTransactionModel_ReconciliationRoundTrip(t *testing.T) {
	txn := &ledger.LedgerTransaction{
		UserAggregateRoot: shared.NewUserAggregateRoot(uuid.New()),
		Fingerprint:       "fp",
	}
	require.NoError(t, txn.LinkTo(uuid.New(), uuid.New(), 0.92, false, 2))

	model := LedgerTransactionModelFromDomain(txn)
	restored := model.ToDomain()

	require.True(t, restored.IsReconciled())
	assert.Equal(t, txn.Reconciliation.LinkedSaleID, restored.Reconciliation.LinkedSaleID)
	assert.Equal(t, 0.92, restored.Reconciliation.Confidence)
	assert.Equal(t, 2, restored.Reconciliation.GroupSize)
	assert.True(t, restored.Reconciliation.IsPartOfGroup)
}
