package dto

import (
	reconcileapp "github.com/fincore/backend/internal/application/reconciliation"
	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/reconciliation"
	"github.com/google/uuid"
)

// ReconcileRequest runs one matching pass over a date window. Omitting both
// dates reconciles the configured default window ending today.
type ReconcileRequest struct {
	StartDate string  `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string  `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	WalletID  *string `json:"wallet_id" binding:"omitempty,uuid"`
}

// ManualLinkRequest records a user-confirmed reconciliation link
type ManualLinkRequest struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required,min=1,dive,uuid"`
	SaleID         string   `json:"sale_id" binding:"required,uuid"`
	InstallmentID  string   `json:"installment_id" binding:"required,uuid"`
}

// LinkResponse is the API view of a reconciliation link
type LinkResponse struct {
	ID             string   `json:"id"`
	TransactionIDs []string `json:"transaction_ids"`
	SaleID         string   `json:"sale_id"`
	InstallmentID  string   `json:"installment_id"`
	Confidence     float64  `json:"confidence"`
	Method         string   `json:"method"`
	IsGroup        bool     `json:"is_group"`
}

// NewLinkResponse converts a link to its API representation
func NewLinkResponse(link *ledger.ReconciliationLink) LinkResponse {
	return LinkResponse{
		ID:             link.ID.String(),
		TransactionIDs: uuidStrings(link.TransactionIDs),
		SaleID:         link.SaleID.String(),
		InstallmentID:  link.InstallmentID.String(),
		Confidence:     link.Confidence,
		Method:         string(link.Method),
		IsGroup:        link.IsGroup(),
	}
}

// CandidateResponse is a pairing surfaced for manual review
type CandidateResponse struct {
	TransactionIDs []string `json:"transaction_ids"`
	SaleID         string   `json:"sale_id"`
	InstallmentID  string   `json:"installment_id"`
	Confidence     float64  `json:"confidence"`
	Reason         string   `json:"reason"`
}

// ReconcileResponse is the outcome of one reconciliation pass
type ReconcileResponse struct {
	ModelReady bool                `json:"model_ready"`
	Reason     string              `json:"reason,omitempty"`
	Links      []LinkResponse      `json:"links"`
	Candidates []CandidateResponse `json:"candidates"`
}

// NewReconcileResponse converts a pass result to its API representation
func NewReconcileResponse(result *reconcileapp.Result) ReconcileResponse {
	resp := ReconcileResponse{
		ModelReady: result.ModelReady,
		Reason:     result.Reason,
		Links:      make([]LinkResponse, len(result.Links)),
		Candidates: make([]CandidateResponse, len(result.Candidates)),
	}
	for i, link := range result.Links {
		resp.Links[i] = NewLinkResponse(link)
	}
	for i, candidate := range result.Candidates {
		resp.Candidates[i] = newCandidateResponse(candidate)
	}
	return resp
}

func newCandidateResponse(candidate reconciliation.Candidate) CandidateResponse {
	return CandidateResponse{
		TransactionIDs: uuidStrings(candidate.TransactionIDs),
		SaleID:         candidate.SaleID.String(),
		InstallmentID:  candidate.InstallmentID.String(),
		Confidence:     candidate.Confidence,
		Reason:         string(candidate.Reason),
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
