package reconcileapp

import (
	"context"
	"testing"
	"time"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxnRepo struct {
	txns map[uuid.UUID]*ledger.LedgerTransaction
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{txns: make(map[uuid.UUID]*ledger.LedgerTransaction)}
}

func (r *fakeTxnRepo) FindByID(_ context.Context, userID, id uuid.UUID) (*ledger.LedgerTransaction, error) {
	txn, ok := r.txns[id]
	if !ok || txn.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return txn, nil
}

func (r *fakeTxnRepo) FindUnreconciled(_ context.Context, userID uuid.UUID, window ledger.Window, _ *uuid.UUID) ([]*ledger.LedgerTransaction, error) {
	var out []*ledger.LedgerTransaction
	for _, txn := range r.txns {
		if txn.UserID == userID && !txn.IsReconciled() && window.Contains(txn.Date) {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (r *fakeTxnRepo) ExistsByFingerprint(_ context.Context, _ uuid.UUID, _ string) (bool, error) {
	return false, nil
}

func (r *fakeTxnRepo) Save(_ context.Context, txn *ledger.LedgerTransaction) error {
	r.txns[txn.ID] = txn
	return nil
}

type fakeSaleRepo struct {
	sales map[uuid.UUID]*ledger.SaleRecord
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{sales: make(map[uuid.UUID]*ledger.SaleRecord)}
}

func (r *fakeSaleRepo) FindByID(_ context.Context, userID, id uuid.UUID) (*ledger.SaleRecord, error) {
	sale, ok := r.sales[id]
	if !ok || sale.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return sale, nil
}

func (r *fakeSaleRepo) FindByExternalID(_ context.Context, userID uuid.UUID, externalID string) (*ledger.SaleRecord, error) {
	for _, sale := range r.sales {
		if sale.UserID == userID && sale.ExternalID == externalID {
			return sale, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSaleRepo) FindWithOpenInstallments(_ context.Context, userID uuid.UUID, _ ledger.Window, _ *uuid.UUID) ([]*ledger.SaleRecord, error) {
	var out []*ledger.SaleRecord
	for _, sale := range r.sales {
		if sale.UserID == userID && len(sale.OpenInstallments()) > 0 {
			out = append(out, sale)
		}
	}
	return out, nil
}

func (r *fakeSaleRepo) Save(_ context.Context, sale *ledger.SaleRecord) error {
	r.sales[sale.ID] = sale
	return nil
}

type fakeLinkRepo struct {
	links []*ledger.ReconciliationLink
}

func (r *fakeLinkRepo) Save(_ context.Context, link *ledger.ReconciliationLink) error {
	r.links = append(r.links, link)
	return nil
}

func (r *fakeLinkRepo) CountByMethod(_ context.Context, userID uuid.UUID, method ledger.LinkMethod) (int64, error) {
	var count int64
	for _, link := range r.links {
		if link.UserID == userID && link.Method == method {
			count++
		}
	}
	return count, nil
}

func (r *fakeLinkRepo) FindByInstallment(_ context.Context, userID, installmentID uuid.UUID) ([]*ledger.ReconciliationLink, error) {
	var out []*ledger.ReconciliationLink
	for _, link := range r.links {
		if link.UserID == userID && link.InstallmentID == installmentID {
			out = append(out, link)
		}
	}
	return out, nil
}

type reconcileFixture struct {
	service  *ReconcileService
	txnRepo  *fakeTxnRepo
	saleRepo *fakeSaleRepo
	linkRepo *fakeLinkRepo
	userID   uuid.UUID
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	f := &reconcileFixture{
		txnRepo:  newFakeTxnRepo(),
		saleRepo: newFakeSaleRepo(),
		linkRepo: &fakeLinkRepo{},
		userID:   uuid.New(),
	}
	service, err := NewReconcileService(f.txnRepo, f.saleRepo, f.linkRepo, DefaultConfig(), nil)
	require.NoError(t, err)
	f.service = service
	return f
}

// openGate seeds enough manual links to pass the bootstrap minimum
func (f *reconcileFixture) openGate(t *testing.T) {
	t.Helper()
	for i := 0; i < DefaultConfig().BootstrapMinimum; i++ {
		link, err := ledger.NewReconciliationLink(
			f.userID, []uuid.UUID{uuid.New()}, uuid.New(), uuid.New(), 1.0, ledger.LinkMethodManual)
		require.NoError(t, err)
		f.linkRepo.links = append(f.linkRepo.links, link)
	}
}

func (f *reconcileFixture) addTxn(t *testing.T, amount float64, date time.Time) *ledger.LedgerTransaction {
	t.Helper()
	txn, err := ledger.NewLedgerTransaction(
		f.userID, nil, valueobject.NewMoneyBRLFromFloat(amount), date, "payment", uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, f.txnRepo.Save(context.Background(), txn))
	return txn
}

func (f *reconcileFixture) addSale(t *testing.T, amounts []float64, dueDate time.Time) *ledger.SaleRecord {
	t.Helper()
	total := 0.0
	installments := make([]ledger.Installment, len(amounts))
	for i, amount := range amounts {
		total += amount
		installments[i] = ledger.Installment{
			ID:         uuid.New(),
			Number:     i + 1,
			TotalCount: len(amounts),
			Amount:     valueobject.NewMoneyBRLFromFloat(amount),
			DueDate:    dueDate.AddDate(0, i, 0),
			Status:     ledger.InstallmentPending,
		}
	}
	sale, err := ledger.NewSaleRecord(
		f.userID, uuid.NewString(), "Maria", valueobject.NewMoneyBRLFromFloat(total), dueDate.AddDate(0, -1, 0), installments)
	require.NoError(t, err)
	require.NoError(t, f.saleRepo.Save(context.Background(), sale))
	return sale
}

var reconcileWindow = ledger.Window{
	Start: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
}

func TestReconcileService_GateClosedWithoutManualHistory(t *testing.T) {
	f := newReconcileFixture(t)
	dueDate := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	f.addTxn(t, 150.00, dueDate)
	f.addSale(t, []float64{150.00}, dueDate)

	result, err := f.service.ReconcileWindow(context.Background(), f.userID, reconcileWindow, nil)
	require.NoError(t, err)

	assert.False(t, result.ModelReady)
	assert.Contains(t, result.Reason, "manually confirmed links")
	assert.Empty(t, result.Links)

	// The gate leaves everything untouched
	txns, err := f.txnRepo.FindUnreconciled(context.Background(), f.userID, reconcileWindow, nil)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestReconcileService_AutomaticLinkPersisted(t *testing.T) {
	f := newReconcileFixture(t)
	f.openGate(t)
	dueDate := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	txn := f.addTxn(t, 150.00, dueDate)
	sale := f.addSale(t, []float64{150.00}, dueDate)

	result, err := f.service.ReconcileWindow(context.Background(), f.userID, reconcileWindow, nil)
	require.NoError(t, err)

	assert.True(t, result.ModelReady)
	require.Len(t, result.Links, 1)
	link := result.Links[0]
	assert.Equal(t, ledger.LinkMethodAutomatic, link.Method)
	assert.Equal(t, sale.ID, link.SaleID)
	assert.GreaterOrEqual(t, link.Confidence, 0.90)

	// Metadata stamped on the transaction
	stored, err := f.txnRepo.FindByID(context.Background(), f.userID, txn.ID)
	require.NoError(t, err)
	require.True(t, stored.IsReconciled())
	assert.Equal(t, sale.ID, stored.Reconciliation.LinkedSaleID)
	assert.False(t, stored.Reconciliation.IsManual)

	// Second pass finds nothing left to match
	again, err := f.service.ReconcileWindow(context.Background(), f.userID, reconcileWindow, nil)
	require.NoError(t, err)
	assert.Empty(t, again.Links)
}

func TestReconcileService_GroupLinkMarksAllTransactions(t *testing.T) {
	f := newReconcileFixture(t)
	f.openGate(t)
	dueDate := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	first := f.addTxn(t, 100.00, dueDate)
	second := f.addTxn(t, 50.00, dueDate)
	f.addSale(t, []float64{150.00}, dueDate)

	result, err := f.service.ReconcileWindow(context.Background(), f.userID, reconcileWindow, nil)
	require.NoError(t, err)

	require.Len(t, result.Links, 1)
	assert.True(t, result.Links[0].IsGroup())

	for _, txn := range []*ledger.LedgerTransaction{first, second} {
		stored, err := f.txnRepo.FindByID(context.Background(), f.userID, txn.ID)
		require.NoError(t, err)
		require.True(t, stored.IsReconciled())
		assert.True(t, stored.Reconciliation.IsPartOfGroup)
		assert.Equal(t, 2, stored.Reconciliation.GroupSize)
	}
}

func TestReconcileService_CandidatesAreNotPersisted(t *testing.T) {
	f := newReconcileFixture(t)
	f.openGate(t)
	dueDate := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	txn := f.addTxn(t, 149.00, dueDate) // near miss, below auto threshold
	f.addSale(t, []float64{150.00}, dueDate)

	result, err := f.service.ReconcileWindow(context.Background(), f.userID, reconcileWindow, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Links)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "BELOW_THRESHOLD", string(result.Candidates[0].Reason))

	stored, err := f.txnRepo.FindByID(context.Background(), f.userID, txn.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsReconciled())
}

func TestReconcileService_ManualLink(t *testing.T) {
	f := newReconcileFixture(t)
	dueDate := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	txn := f.addTxn(t, 150.00, dueDate)
	sale := f.addSale(t, []float64{150.00}, dueDate)
	installmentID := sale.Installments[0].ID

	link, err := f.service.ManualLink(context.Background(), f.userID, []uuid.UUID{txn.ID}, sale.ID, installmentID)
	require.NoError(t, err)

	assert.Equal(t, ledger.LinkMethodManual, link.Method)
	assert.Equal(t, 1.0, link.Confidence)

	stored, err := f.txnRepo.FindByID(context.Background(), f.userID, txn.ID)
	require.NoError(t, err)
	require.True(t, stored.IsReconciled())
	assert.True(t, stored.Reconciliation.IsManual)

	t.Run("feeds the readiness gate", func(t *testing.T) {
		count, err := f.linkRepo.CountByMethod(context.Background(), f.userID, ledger.LinkMethodManual)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rejects relinking", func(t *testing.T) {
		_, err := f.service.ManualLink(context.Background(), f.userID, []uuid.UUID{txn.ID}, sale.ID, installmentID)
		assert.Error(t, err)
	})
}

func TestReconcileService_ManualLinkValidation(t *testing.T) {
	f := newReconcileFixture(t)
	dueDate := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	txn := f.addTxn(t, 150.00, dueDate)
	sale := f.addSale(t, []float64{150.00}, dueDate)

	t.Run("unknown sale", func(t *testing.T) {
		_, err := f.service.ManualLink(context.Background(), f.userID, []uuid.UUID{txn.ID}, uuid.New(), sale.Installments[0].ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("installment from another sale", func(t *testing.T) {
		_, err := f.service.ManualLink(context.Background(), f.userID, []uuid.UUID{txn.ID}, sale.ID, uuid.New())
		assert.Error(t, err)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := f.service.ManualLink(context.Background(), f.userID, []uuid.UUID{uuid.New()}, sale.ID, sale.Installments[0].ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
