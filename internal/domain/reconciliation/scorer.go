package reconciliation

import (
	"time"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// MatchScorer estimates how likely a set of transactions is the economic
// counterpart of an installment. Implementations return a confidence in
// [0, 1]; zero means the pairing should not even be surfaced for review.
//
// The default is the deterministic rule-based scorer below; a learned scorer
// can be substituted without changing the matcher contract.
type MatchScorer interface {
	Name() string
	Score(txns []*ledger.LedgerTransaction, inst ledger.OpenInstallment) float64
}

// ScorerConfig holds the tuning knobs of the rule-based scorer
type ScorerConfig struct {
	// AmountTolerance is the absolute difference treated as an exact-amount
	// match (default one cent)
	AmountTolerance decimal.Decimal

	// NearMissPercent widens the band in which a pairing still surfaces as a
	// manual-review candidate, as a percentage of the installment amount
	// (default 2%)
	NearMissPercent decimal.Decimal

	// DateDecayDays is the distance at which date proximity contributes
	// nothing (default 30 days)
	DateDecayDays int
}

// DefaultScorerConfig returns the default rule-based scorer configuration
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		AmountTolerance: decimal.NewFromFloat(0.01),
		NearMissPercent: decimal.NewFromInt(2),
		DateDecayDays:   30,
	}
}

// Confidence weights. Amount closeness dominates; the wallet hint only
// nudges a decision that amount and date already support.
const (
	weightAmount = 0.6
	weightDate   = 0.3
	weightWallet = 0.1
)

// RuleBasedScorer scores pairings from amount closeness, date proximity and
// the wallet/payment-channel hint
type RuleBasedScorer struct {
	cfg ScorerConfig
}

// NewRuleBasedScorer creates a rule-based scorer
func NewRuleBasedScorer(cfg ScorerConfig) *RuleBasedScorer {
	if cfg.AmountTolerance.IsZero() {
		cfg.AmountTolerance = decimal.NewFromFloat(0.01)
	}
	if cfg.NearMissPercent.IsZero() {
		cfg.NearMissPercent = decimal.NewFromInt(2)
	}
	if cfg.DateDecayDays <= 0 {
		cfg.DateDecayDays = 30
	}
	return &RuleBasedScorer{cfg: cfg}
}

// Name identifies the scorer
func (s *RuleBasedScorer) Name() string {
	return "rule_based"
}

// Score computes the weighted confidence for a candidate pairing
func (s *RuleBasedScorer) Score(txns []*ledger.LedgerTransaction, inst ledger.OpenInstallment) float64 {
	if len(txns) == 0 {
		return 0
	}

	amountScore := s.amountScore(txns, inst)
	if amountScore == 0 {
		return 0
	}

	return weightAmount*amountScore +
		weightDate*s.dateScore(txns, inst) +
		weightWallet*s.walletScore(txns, inst)
}

// amountScore compares the summed transaction amount to the installment
// amount. Within tolerance it scores in [0.9, 1]; within the near-miss band
// it degrades toward zero so the pairing is surfaced for review but never
// auto-linked; beyond the band it is zero.
func (s *RuleBasedScorer) amountScore(txns []*ledger.LedgerTransaction, inst ledger.OpenInstallment) float64 {
	sum := decimal.Zero
	for _, txn := range txns {
		sum = sum.Add(txn.Amount.Amount().Abs())
	}
	target := inst.Amount.Amount().Abs()
	diff := sum.Sub(target).Abs()

	if diff.LessThanOrEqual(s.cfg.AmountTolerance) {
		ratio, _ := diff.Div(s.cfg.AmountTolerance).Float64()
		return 1 - 0.1*ratio
	}

	nearBand := decimal.Max(
		s.cfg.AmountTolerance,
		target.Mul(s.cfg.NearMissPercent).Div(decimal.NewFromInt(100)),
	)
	if diff.LessThanOrEqual(nearBand) {
		ratio, _ := diff.Div(nearBand).Float64()
		return 0.5 * (1 - ratio)
	}
	return 0
}

// dateScore decays linearly with the distance between the latest transaction
// date and the installment due date
func (s *RuleBasedScorer) dateScore(txns []*ledger.LedgerTransaction, inst ledger.OpenInstallment) float64 {
	var latest time.Time
	for _, txn := range txns {
		if txn.Date.After(latest) {
			latest = txn.Date
		}
	}

	days := latest.Sub(inst.DueDate).Hours() / 24
	if days < 0 {
		days = -days
	}
	decay := float64(s.cfg.DateDecayDays)
	if days >= decay {
		return 0
	}
	return 1 - days/decay
}

// walletScore returns 1 when every transaction shares the installment's
// wallet hint, 0 on a definite mismatch, and 0.5 when either side carries no
// hint
func (s *RuleBasedScorer) walletScore(txns []*ledger.LedgerTransaction, inst ledger.OpenInstallment) float64 {
	if inst.WalletID == nil {
		return 0.5
	}
	sawHint := false
	for _, txn := range txns {
		if txn.WalletID == nil {
			continue
		}
		sawHint = true
		if *txn.WalletID != *inst.WalletID {
			return 0
		}
	}
	if !sawHint {
		return 0.5
	}
	return 1
}
