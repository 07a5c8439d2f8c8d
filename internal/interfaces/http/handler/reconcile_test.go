package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	reconcileapp "github.com/fincore/backend/internal/application/reconciliation"
	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/fincore/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTxnRepo struct {
	txns map[uuid.UUID]*ledger.LedgerTransaction
}

func (r *memTxnRepo) FindByID(_ context.Context, userID, id uuid.UUID) (*ledger.LedgerTransaction, error) {
	txn, ok := r.txns[id]
	if !ok || txn.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return txn, nil
}

func (r *memTxnRepo) FindUnreconciled(_ context.Context, userID uuid.UUID, window ledger.Window, _ *uuid.UUID) ([]*ledger.LedgerTransaction, error) {
	var out []*ledger.LedgerTransaction
	for _, txn := range r.txns {
		if txn.UserID == userID && !txn.IsReconciled() && window.Contains(txn.Date) {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (r *memTxnRepo) ExistsByFingerprint(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}

func (r *memTxnRepo) Save(_ context.Context, txn *ledger.LedgerTransaction) error {
	r.txns[txn.ID] = txn
	return nil
}

type memSaleRepo struct {
	sales map[uuid.UUID]*ledger.SaleRecord
}

func (r *memSaleRepo) FindByID(_ context.Context, userID, id uuid.UUID) (*ledger.SaleRecord, error) {
	sale, ok := r.sales[id]
	if !ok || sale.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return sale, nil
}

func (r *memSaleRepo) FindByExternalID(context.Context, uuid.UUID, string) (*ledger.SaleRecord, error) {
	return nil, shared.ErrNotFound
}

func (r *memSaleRepo) FindWithOpenInstallments(_ context.Context, userID uuid.UUID, window ledger.Window, _ *uuid.UUID) ([]*ledger.SaleRecord, error) {
	var out []*ledger.SaleRecord
	for _, sale := range r.sales {
		if sale.UserID != userID {
			continue
		}
		for _, inst := range sale.OpenInstallments() {
			if window.Contains(inst.DueDate) {
				out = append(out, sale)
				break
			}
		}
	}
	return out, nil
}

func (r *memSaleRepo) Save(_ context.Context, sale *ledger.SaleRecord) error {
	r.sales[sale.ID] = sale
	return nil
}

type memLinkRepo struct {
	links []*ledger.ReconciliationLink
}

func (r *memLinkRepo) Save(_ context.Context, link *ledger.ReconciliationLink) error {
	r.links = append(r.links, link)
	return nil
}

func (r *memLinkRepo) CountByMethod(_ context.Context, userID uuid.UUID, method ledger.LinkMethod) (int64, error) {
	var n int64
	for _, link := range r.links {
		if link.UserID == userID && link.Method == method {
			n++
		}
	}
	return n, nil
}

func (r *memLinkRepo) FindByInstallment(_ context.Context, userID, installmentID uuid.UUID) ([]*ledger.ReconciliationLink, error) {
	var out []*ledger.ReconciliationLink
	for _, link := range r.links {
		if link.UserID == userID && link.InstallmentID == installmentID {
			out = append(out, link)
		}
	}
	return out, nil
}

type reconcileTestEnv struct {
	engine   *gin.Engine
	txnRepo  *memTxnRepo
	saleRepo *memSaleRepo
	linkRepo *memLinkRepo
	userID   uuid.UUID
}

func setupReconcileServer(t *testing.T) *reconcileTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &reconcileTestEnv{
		txnRepo:  &memTxnRepo{txns: make(map[uuid.UUID]*ledger.LedgerTransaction)},
		saleRepo: &memSaleRepo{sales: make(map[uuid.UUID]*ledger.SaleRecord)},
		linkRepo: &memLinkRepo{},
		userID:   uuid.New(),
	}

	service, err := reconcileapp.NewReconcileService(
		env.txnRepo, env.saleRepo, env.linkRepo, reconcileapp.DefaultConfig(), nil)
	require.NoError(t, err)

	env.engine = gin.New()
	router.NewRouter(env.engine).
		Register(NewReconcileHandler(service, 90)).
		Setup()
	return env
}

func (env *reconcileTestEnv) seedTransaction(t *testing.T, amount float64, date time.Time) *ledger.LedgerTransaction {
	t.Helper()
	money := valueobject.NewMoneyBRLFromFloat(amount)
	txn, err := ledger.NewLedgerTransaction(
		env.userID, nil, money, date, "deposit",
		ledger.Fingerprint(money, date, "deposit"))
	require.NoError(t, err)
	require.NoError(t, env.txnRepo.Save(context.Background(), txn))
	return txn
}

func (env *reconcileTestEnv) seedSale(t *testing.T, amount float64, dueDate time.Time) *ledger.SaleRecord {
	t.Helper()
	sale, err := ledger.NewSaleRecord(
		env.userID, uuid.NewString(), "Customer",
		valueobject.NewMoneyBRLFromFloat(amount), dueDate.AddDate(0, -1, 0),
		[]ledger.Installment{{
			ID:         uuid.New(),
			Number:     1,
			TotalCount: 1,
			Amount:     valueobject.NewMoneyBRLFromFloat(amount),
			DueDate:    dueDate,
			Status:     ledger.InstallmentPending,
		}})
	require.NoError(t, err)
	require.NoError(t, env.saleRepo.Save(context.Background(), sale))
	return sale
}

// openReadinessGate seeds enough manual links that automatic matching runs
func (env *reconcileTestEnv) openReadinessGate(t *testing.T) {
	t.Helper()
	for i := 0; i < reconcileapp.DefaultConfig().BootstrapMinimum; i++ {
		link, err := ledger.NewReconciliationLink(
			env.userID, []uuid.UUID{uuid.New()}, uuid.New(), uuid.New(),
			1.0, ledger.LinkMethodManual)
		require.NoError(t, err)
		require.NoError(t, env.linkRepo.Save(context.Background(), link))
	}
}

func TestReconcileHandler_Reconcile(t *testing.T) {
	dueDate := time.Now().UTC().AddDate(0, 0, -10).Truncate(24 * time.Hour)

	t.Run("gate closed without manual history", func(t *testing.T) {
		env := setupReconcileServer(t)

		w := doRequest(env.engine, http.MethodPost, "/api/v1/reconciliations",
			env.userID.String(), gin.H{})

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data struct {
				ModelReady bool   `json:"model_ready"`
				Reason     string `json:"reason"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Data.ModelReady)
		assert.Contains(t, resp.Data.Reason, "manually confirmed")
	})

	t.Run("links an exact match over the default window", func(t *testing.T) {
		env := setupReconcileServer(t)
		env.openReadinessGate(t)
		env.seedTransaction(t, 150.00, dueDate)
		env.seedSale(t, 150.00, dueDate)

		w := doRequest(env.engine, http.MethodPost, "/api/v1/reconciliations",
			env.userID.String(), gin.H{})

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data struct {
				ModelReady bool `json:"model_ready"`
				Links      []struct {
					Method     string  `json:"method"`
					Confidence float64 `json:"confidence"`
				} `json:"links"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Data.ModelReady)
		require.Len(t, resp.Data.Links, 1)
		assert.Equal(t, "AUTOMATIC", resp.Data.Links[0].Method)
		assert.GreaterOrEqual(t, resp.Data.Links[0].Confidence, 0.90)
	})

	t.Run("explicit window excludes the pair", func(t *testing.T) {
		env := setupReconcileServer(t)
		env.openReadinessGate(t)
		env.seedTransaction(t, 150.00, dueDate)
		env.seedSale(t, 150.00, dueDate)

		w := doRequest(env.engine, http.MethodPost, "/api/v1/reconciliations",
			env.userID.String(), gin.H{"start_date": "2000-01-01", "end_date": "2000-01-31"})

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data struct {
				Links []json.RawMessage `json:"links"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Data.Links)
	})

	t.Run("rejects a malformed date", func(t *testing.T) {
		env := setupReconcileServer(t)
		w := doRequest(env.engine, http.MethodPost, "/api/v1/reconciliations",
			env.userID.String(), gin.H{"start_date": "31/05/2026", "end_date": "2026-06-30"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReconcileHandler_ManualLink(t *testing.T) {
	dueDate := time.Now().UTC().AddDate(0, 0, -5).Truncate(24 * time.Hour)

	t.Run("creates a manual link", func(t *testing.T) {
		env := setupReconcileServer(t)
		txn := env.seedTransaction(t, 99.00, dueDate)
		sale := env.seedSale(t, 99.00, dueDate)

		w := doRequest(env.engine, http.MethodPost, "/api/v1/reconciliations/links",
			env.userID.String(), gin.H{
				"transaction_ids": []string{txn.ID.String()},
				"sale_id":         sale.ID.String(),
				"installment_id":  sale.Installments[0].ID.String(),
			})

		require.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			Data struct {
				Method     string  `json:"method"`
				Confidence float64 `json:"confidence"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "MANUAL", resp.Data.Method)
		assert.Equal(t, 1.0, resp.Data.Confidence)
	})

	t.Run("404 for an unknown sale", func(t *testing.T) {
		env := setupReconcileServer(t)
		txn := env.seedTransaction(t, 99.00, dueDate)

		w := doRequest(env.engine, http.MethodPost, "/api/v1/reconciliations/links",
			env.userID.String(), gin.H{
				"transaction_ids": []string{txn.ID.String()},
				"sale_id":         uuid.NewString(),
				"installment_id":  uuid.NewString(),
			})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects an empty transaction list", func(t *testing.T) {
		env := setupReconcileServer(t)
		w := doRequest(env.engine, http.MethodPost, "/api/v1/reconciliations/links",
			env.userID.String(), gin.H{
				"transaction_ids": []string{},
				"sale_id":         uuid.NewString(),
				"installment_id":  uuid.NewString(),
			})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
