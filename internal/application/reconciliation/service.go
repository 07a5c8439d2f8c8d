package reconcileapp

import (
	"context"
	"fmt"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/reconciliation"
	"github.com/fincore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the reconciliation pass settings
type Config struct {
	AutoThreshold    float64
	AmountTolerance  float64
	MaxGroupSize     int
	BootstrapMinimum int
}

// DefaultConfig returns the default reconciliation configuration
func DefaultConfig() Config {
	return Config{
		AutoThreshold:    0.90,
		AmountTolerance:  0.01,
		MaxGroupSize:     3,
		BootstrapMinimum: 5,
	}
}

// Result is the outcome of one reconciliation pass. When the readiness gate
// rejects the pass, ModelReady is false, Reason explains why and no links
// were created.
type Result struct {
	Links      []*ledger.ReconciliationLink `json:"links"`
	Candidates []reconciliation.Candidate   `json:"candidates"`
	ModelReady bool                         `json:"model_ready"`
	Reason     string                       `json:"reason,omitempty"`
}

// ReconcileService runs the matcher over a user's unreconciled transactions
// and open installments, persisting the automatic links it finds.
type ReconcileService struct {
	txnRepo  ledger.TransactionRepository
	saleRepo ledger.SaleRepository
	linkRepo ledger.ReconciliationLinkRepository
	matcher  *reconciliation.Matcher
	cfg      Config
	logger   *zap.Logger
}

// NewReconcileService creates a ReconcileService with the rule-based scorer
func NewReconcileService(
	txnRepo ledger.TransactionRepository,
	saleRepo ledger.SaleRepository,
	linkRepo ledger.ReconciliationLinkRepository,
	cfg Config,
	logger *zap.Logger,
) (*ReconcileService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	scorerCfg := reconciliation.DefaultScorerConfig()
	if cfg.AmountTolerance > 0 {
		scorerCfg.AmountTolerance = decimal.NewFromFloat(cfg.AmountTolerance)
	}
	matcher, err := reconciliation.NewMatcher(reconciliation.NewRuleBasedScorer(scorerCfg), reconciliation.Config{
		AutoThreshold: cfg.AutoThreshold,
		MaxGroupSize:  cfg.MaxGroupSize,
		TieEpsilon:    0.001,
	})
	if err != nil {
		return nil, err
	}

	return &ReconcileService{
		txnRepo:  txnRepo,
		saleRepo: saleRepo,
		linkRepo: linkRepo,
		matcher:  matcher,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ReconcileWindow runs one matching pass over the date window, optionally
// restricted to a wallet. Automatic links are persisted together with the
// reconciliation metadata on each linked transaction; candidates are
// returned for manual review only.
func (s *ReconcileService) ReconcileWindow(ctx context.Context, userID uuid.UUID, window ledger.Window, walletID *uuid.UUID) (*Result, error) {
	ready, reason, err := s.checkReadiness(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ready {
		s.logger.Info("reconciliation gate closed",
			zap.String("user_id", userID.String()),
			zap.String("reason", reason),
		)
		return &Result{ModelReady: false, Reason: reason}, nil
	}

	txns, err := s.txnRepo.FindUnreconciled(ctx, userID, window, walletID)
	if err != nil {
		return nil, err
	}
	sales, err := s.saleRepo.FindWithOpenInstallments(ctx, userID, window, walletID)
	if err != nil {
		return nil, err
	}
	installments := ledger.OpenInstallmentsOf(sales)

	match, err := s.matcher.Match(userID, txns, installments)
	if err != nil {
		return nil, err
	}

	txnsByID := make(map[uuid.UUID]*ledger.LedgerTransaction, len(txns))
	for _, txn := range txns {
		txnsByID[txn.ID] = txn
	}

	for _, link := range match.Links {
		if err := s.persistLink(ctx, link, txnsByID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("reconciliation pass finished",
		zap.String("user_id", userID.String()),
		zap.Int("transactions", len(txns)),
		zap.Int("open_installments", len(installments)),
		zap.Int("links", len(match.Links)),
		zap.Int("candidates", len(match.Candidates)),
	)

	return &Result{
		Links:      match.Links,
		Candidates: match.Candidates,
		ModelReady: true,
	}, nil
}

// ManualLink records a user-confirmed link between transactions and an
// installment. Manual links carry full confidence and feed the readiness
// gate for automatic matching.
func (s *ReconcileService) ManualLink(ctx context.Context, userID uuid.UUID, txnIDs []uuid.UUID, saleID, installmentID uuid.UUID) (*ledger.ReconciliationLink, error) {
	sale, err := s.saleRepo.FindByID(ctx, userID, saleID)
	if err != nil {
		return nil, err
	}
	if !s.saleHasInstallment(sale, installmentID) {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT", "Installment does not belong to the sale")
	}

	txns := make([]*ledger.LedgerTransaction, 0, len(txnIDs))
	for _, id := range txnIDs {
		txn, err := s.txnRepo.FindByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if txn.IsReconciled() {
			return nil, shared.NewDomainError("ALREADY_RECONCILED",
				fmt.Sprintf("Transaction %s is already reconciled", txn.ID))
		}
		txns = append(txns, txn)
	}

	link, err := ledger.NewReconciliationLink(userID, txnIDs, saleID, installmentID, 1.0, ledger.LinkMethodManual)
	if err != nil {
		return nil, err
	}
	if err := s.linkRepo.Save(ctx, link); err != nil {
		return nil, err
	}

	for _, txn := range txns {
		if err := txn.LinkTo(saleID, installmentID, 1.0, true, len(txnIDs)); err != nil {
			return nil, err
		}
		if err := s.txnRepo.Save(ctx, txn); err != nil {
			return nil, err
		}
	}

	s.logger.Info("manual link recorded",
		zap.String("user_id", userID.String()),
		zap.String("installment_id", installmentID.String()),
		zap.Int("transactions", len(txnIDs)),
	)
	return link, nil
}

// checkReadiness enforces the bootstrap gate: automatic matching needs a
// minimum of confirmed manual links before it is trusted.
func (s *ReconcileService) checkReadiness(ctx context.Context, userID uuid.UUID) (bool, string, error) {
	count, err := s.linkRepo.CountByMethod(ctx, userID, ledger.LinkMethodManual)
	if err != nil {
		return false, "", err
	}
	if count < int64(s.cfg.BootstrapMinimum) {
		return false, fmt.Sprintf(
			"automatic matching needs at least %d manually confirmed links, have %d",
			s.cfg.BootstrapMinimum, count,
		), nil
	}
	return true, "", nil
}

// persistLink saves an automatic link and stamps the reconciliation metadata
// on every transaction it covers
func (s *ReconcileService) persistLink(ctx context.Context, link *ledger.ReconciliationLink, txnsByID map[uuid.UUID]*ledger.LedgerTransaction) error {
	if err := s.linkRepo.Save(ctx, link); err != nil {
		return err
	}
	for _, txnID := range link.TransactionIDs {
		txn, ok := txnsByID[txnID]
		if !ok {
			return shared.ErrNotFound
		}
		if err := txn.LinkTo(link.SaleID, link.InstallmentID, link.Confidence, false, len(link.TransactionIDs)); err != nil {
			return err
		}
		if err := s.txnRepo.Save(ctx, txn); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReconcileService) saleHasInstallment(sale *ledger.SaleRecord, installmentID uuid.UUID) bool {
	for _, inst := range sale.Installments {
		if inst.ID == installmentID {
			return true
		}
	}
	return false
}
