package ledger

import (
	"testing"
	"time"

	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(t *testing.T) *LedgerTransaction {
	t.Helper()
	amount := valueobject.NewMoneyBRLFromFloat(75.00)
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	txn, err := NewLedgerTransaction(uuid.New(), nil, amount, date, "deposit", Fingerprint(amount, date, "deposit"))
	require.NoError(t, err)
	return txn
}

func TestNewLedgerTransaction_Validation(t *testing.T) {
	date := time.Now()

	t.Run("zero amount", func(t *testing.T) {
		_, err := NewLedgerTransaction(uuid.New(), nil, valueobject.ZeroBRL(), date, "x", "fp")
		assert.Error(t, err)
	})

	t.Run("missing fingerprint", func(t *testing.T) {
		_, err := NewLedgerTransaction(uuid.New(), nil, valueobject.NewMoneyBRLFromFloat(1), date, "x", "")
		assert.Error(t, err)
	})

	t.Run("missing date", func(t *testing.T) {
		_, err := NewLedgerTransaction(uuid.New(), nil, valueobject.NewMoneyBRLFromFloat(1), time.Time{}, "x", "fp")
		assert.Error(t, err)
	})
}

func TestLedgerTransaction_LinkTo(t *testing.T) {
	txn := newTestTransaction(t)
	saleID := uuid.New()
	instID := uuid.New()

	require.False(t, txn.IsReconciled())
	require.NoError(t, txn.LinkTo(saleID, instID, 0.97, false, 2))

	require.NotNil(t, txn.Reconciliation)
	assert.Equal(t, saleID, txn.Reconciliation.LinkedSaleID)
	assert.Equal(t, instID, txn.Reconciliation.LinkedInstallmentID)
	assert.True(t, txn.Reconciliation.IsPartOfGroup)
	assert.Equal(t, 2, txn.Reconciliation.GroupSize)
	assert.False(t, txn.Reconciliation.IsManual)

	// Double-linking is an invalid state transition
	assert.Error(t, txn.LinkTo(saleID, instID, 0.99, false, 1))

	require.NoError(t, txn.Unlink())
	assert.False(t, txn.IsReconciled())
	assert.Error(t, txn.Unlink())
}

func TestNewReconciliationLink(t *testing.T) {
	userID := uuid.New()

	t.Run("n to one", func(t *testing.T) {
		link, err := NewReconciliationLink(userID, []uuid.UUID{uuid.New(), uuid.New()}, uuid.New(), uuid.New(), 0.95, LinkMethodAutomatic)
		require.NoError(t, err)
		assert.True(t, link.IsGroup())
	})

	t.Run("no transactions", func(t *testing.T) {
		_, err := NewReconciliationLink(userID, nil, uuid.New(), uuid.New(), 0.95, LinkMethodAutomatic)
		assert.Error(t, err)
	})

	t.Run("confidence out of range", func(t *testing.T) {
		_, err := NewReconciliationLink(userID, []uuid.UUID{uuid.New()}, uuid.New(), uuid.New(), 1.5, LinkMethodManual)
		assert.Error(t, err)
	})
}

func TestExternalRecord_Validate(t *testing.T) {
	valid := ExternalRecord{
		ExternalID: "EXT-9",
		Kind:       RecordKindTransaction,
		Amount:     valueobject.NewMoneyBRLFromFloat(10),
		Date:       time.Now(),
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*ExternalRecord)
	}{
		{"missing id", func(r *ExternalRecord) { r.ExternalID = "" }},
		{"missing date", func(r *ExternalRecord) { r.Date = time.Time{} }},
		{"zero amount", func(r *ExternalRecord) { r.Amount = valueobject.ZeroBRL() }},
		{"unknown kind", func(r *ExternalRecord) { r.Kind = "CHEQUE" }},
		{"non-positive sale", func(r *ExternalRecord) {
			r.Kind = RecordKindSale
			r.Amount = valueobject.NewMoneyBRLFromFloat(-5)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}
