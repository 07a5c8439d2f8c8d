package reconciliation

import (
	"sort"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CandidateReason explains why a pairing needs manual review
type CandidateReason string

const (
	ReasonBelowThreshold CandidateReason = "BELOW_THRESHOLD"
	ReasonAmbiguousTie   CandidateReason = "AMBIGUOUS_TIE"
)

// Candidate is a pairing the matcher refuses to link automatically. It is
// surfaced for manual review, never silently resolved.
type Candidate struct {
	TransactionIDs []uuid.UUID     `json:"transaction_ids"`
	SaleID         uuid.UUID       `json:"sale_id"`
	InstallmentID  uuid.UUID       `json:"installment_id"`
	Confidence     float64         `json:"confidence"`
	Reason         CandidateReason `json:"reason"`
}

// MatchResult is the outcome of one matching pass
type MatchResult struct {
	Links      []*ledger.ReconciliationLink
	Candidates []Candidate
}

// Config holds the matcher's decision parameters
type Config struct {
	// AutoThreshold is the minimum confidence for an AUTOMATIC link
	// (default 0.90)
	AutoThreshold float64

	// MaxGroupSize bounds how many transactions may combine into one N:1
	// match (default 3)
	MaxGroupSize int

	// TieEpsilon is the confidence distance below which two proposals for
	// the same installment count as equally good (default 0.001)
	TieEpsilon float64
}

// DefaultConfig returns the default matcher configuration
func DefaultConfig() Config {
	return Config{
		AutoThreshold: 0.90,
		MaxGroupSize:  3,
		TieEpsilon:    0.001,
	}
}

// Matcher links unmatched ledger transactions to unmatched installments
// using a pluggable confidence scorer. It supports 1:1 and N:1 matches.
type Matcher struct {
	scorer MatchScorer
	cfg    Config
}

// NewMatcher creates a matcher with the given scorer and configuration
func NewMatcher(scorer MatchScorer, cfg Config) (*Matcher, error) {
	if scorer == nil {
		return nil, shared.NewDomainError("INVALID_SCORER", "A match scorer is required")
	}
	if cfg.AutoThreshold <= 0 || cfg.AutoThreshold > 1 {
		return nil, shared.NewDomainError("INVALID_THRESHOLD", "Auto threshold must be in (0, 1]")
	}
	if cfg.MaxGroupSize < 1 {
		cfg.MaxGroupSize = 1
	}
	if cfg.TieEpsilon <= 0 {
		cfg.TieEpsilon = 0.001
	}
	return &Matcher{scorer: scorer, cfg: cfg}, nil
}

// proposal is one scored pairing of a transaction subset with an installment
type proposal struct {
	installment ledger.OpenInstallment
	txns        []*ledger.LedgerTransaction
	confidence  float64
}

// Match scores every feasible pairing and partitions the outcomes into
// AUTOMATIC links and manual-review candidates.
//
// Per installment, the best-scoring subset wins; a runner-up within
// TieEpsilon demotes both to candidates. Each transaction and each
// installment is consumed by at most one link per pass (greedy by
// descending confidence).
func (m *Matcher) Match(
	userID uuid.UUID,
	txns []*ledger.LedgerTransaction,
	installments []ledger.OpenInstallment,
) (*MatchResult, error) {
	result := &MatchResult{
		Links:      make([]*ledger.ReconciliationLink, 0),
		Candidates: make([]Candidate, 0),
	}

	pool := make([]*ledger.LedgerTransaction, 0, len(txns))
	for _, txn := range txns {
		if txn != nil && !txn.IsReconciled() {
			pool = append(pool, txn)
		}
	}
	if len(pool) == 0 || len(installments) == 0 {
		return result, nil
	}

	// Best and runner-up proposal per installment
	type ranked struct {
		best   *proposal
		second *proposal
	}
	rankings := make([]ranked, len(installments))
	for i, inst := range installments {
		for _, subset := range m.subsets(pool) {
			score := m.scorer.Score(subset, inst)
			if score <= 0 {
				continue
			}
			p := &proposal{installment: inst, txns: subset, confidence: score}
			switch {
			case rankings[i].best == nil || score > rankings[i].best.confidence:
				rankings[i].second = rankings[i].best
				rankings[i].best = p
			case rankings[i].second == nil || score > rankings[i].second.confidence:
				rankings[i].second = p
			}
		}
	}

	// Order installments by their best confidence, descending, so stronger
	// matches consume transactions first
	order := make([]int, 0, len(installments))
	for i := range rankings {
		if rankings[i].best != nil {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rankings[order[a]].best.confidence > rankings[order[b]].best.confidence
	})

	consumedTxns := make(map[uuid.UUID]bool)
	for _, i := range order {
		best := rankings[i].best
		if m.anyConsumed(best.txns, consumedTxns) {
			// The winning transactions went to a stronger match; surface the
			// leftover pairing for review rather than dropping it silently
			result.Candidates = append(result.Candidates, m.candidate(best, ReasonAmbiguousTie))
			continue
		}

		second := rankings[i].second
		tied := second != nil &&
			best.confidence-second.confidence <= m.cfg.TieEpsilon &&
			!m.sameTransactions(best, second)

		switch {
		case best.confidence >= m.cfg.AutoThreshold && !tied:
			link, err := ledger.NewReconciliationLink(
				userID,
				transactionIDs(best.txns),
				best.installment.SaleID,
				best.installment.InstallmentID,
				best.confidence,
				ledger.LinkMethodAutomatic,
			)
			if err != nil {
				return nil, err
			}
			result.Links = append(result.Links, link)
			for _, txn := range best.txns {
				consumedTxns[txn.ID] = true
			}
		case tied:
			result.Candidates = append(result.Candidates, m.candidate(best, ReasonAmbiguousTie))
			result.Candidates = append(result.Candidates, m.candidate(second, ReasonAmbiguousTie))
		default:
			result.Candidates = append(result.Candidates, m.candidate(best, ReasonBelowThreshold))
		}
	}

	return result, nil
}

// subsets enumerates transaction combinations of size 1..MaxGroupSize
func (m *Matcher) subsets(pool []*ledger.LedgerTransaction) [][]*ledger.LedgerTransaction {
	var out [][]*ledger.LedgerTransaction
	n := len(pool)
	maxSize := m.cfg.MaxGroupSize
	if maxSize > n {
		maxSize = n
	}

	var build func(start int, current []*ledger.LedgerTransaction)
	build = func(start int, current []*ledger.LedgerTransaction) {
		if len(current) > 0 {
			subset := make([]*ledger.LedgerTransaction, len(current))
			copy(subset, current)
			out = append(out, subset)
		}
		if len(current) == maxSize {
			return
		}
		for i := start; i < n; i++ {
			build(i+1, append(current, pool[i]))
		}
	}
	build(0, nil)
	return out
}

func (m *Matcher) anyConsumed(txns []*ledger.LedgerTransaction, consumed map[uuid.UUID]bool) bool {
	for _, txn := range txns {
		if consumed[txn.ID] {
			return true
		}
	}
	return false
}

func (m *Matcher) sameTransactions(a, b *proposal) bool {
	if len(a.txns) != len(b.txns) {
		return false
	}
	ids := make(map[uuid.UUID]bool, len(a.txns))
	for _, txn := range a.txns {
		ids[txn.ID] = true
	}
	for _, txn := range b.txns {
		if !ids[txn.ID] {
			return false
		}
	}
	return true
}

func (m *Matcher) candidate(p *proposal, reason CandidateReason) Candidate {
	return Candidate{
		TransactionIDs: transactionIDs(p.txns),
		SaleID:         p.installment.SaleID,
		InstallmentID:  p.installment.InstallmentID,
		Confidence:     p.confidence,
		Reason:         reason,
	}
}

func transactionIDs(txns []*ledger.LedgerTransaction) []uuid.UUID {
	ids := make([]uuid.UUID, len(txns))
	for i, txn := range txns {
		ids[i] = txn.ID
	}
	return ids
}
