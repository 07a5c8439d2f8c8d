package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Amounts are stored as bare decimals; the system currency is BRL.

// SaleRecordModel is the persistence model for the SaleRecord aggregate.
// The (user_id, external_id) unique index is created by the migrations.
type SaleRecordModel struct {
	UserAggregateModel
	ExternalID       string             `gorm:"type:varchar(100);not null;index"`
	Customer         string             `gorm:"type:varchar(255)"`
	TotalAmount      decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	SaleDate         time.Time          `gorm:"type:timestamptz;not null;index"`
	WalletID         *uuid.UUID         `gorm:"type:uuid;index"`
	InstallmentCount int                `gorm:"not null;default:0"`
	Installments     []InstallmentModel `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SaleRecordModel) TableName() string {
	return "sale_records"
}

// InstallmentModel is the persistence model for one scheduled payment.
type InstallmentModel struct {
	ID         uuid.UUID                `gorm:"type:uuid;primary_key"`
	SaleID     uuid.UUID                `gorm:"type:uuid;not null;index"`
	Number     int                      `gorm:"not null"`
	TotalCount int                      `gorm:"not null"`
	Amount     decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	DueDate    time.Time                `gorm:"type:timestamptz;not null;index"`
	Status     ledger.InstallmentStatus `gorm:"type:varchar(20);not null;index;default:'PENDING'"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain SaleRecord aggregate.
func (m *SaleRecordModel) ToDomain() *ledger.SaleRecord {
	sale := &ledger.SaleRecord{
		ExternalID:       m.ExternalID,
		Customer:         m.Customer,
		TotalAmount:      valueobject.NewMoneyBRL(m.TotalAmount),
		SaleDate:         m.SaleDate,
		WalletID:         m.WalletID,
		InstallmentCount: m.InstallmentCount,
	}
	m.PopulateUserAggregateRoot(&sale.UserAggregateRoot)

	if len(m.Installments) > 0 {
		sale.Installments = make([]ledger.Installment, len(m.Installments))
		for i, inst := range m.Installments {
			sale.Installments[i] = ledger.Installment{
				ID:         inst.ID,
				Number:     inst.Number,
				TotalCount: inst.TotalCount,
				Amount:     valueobject.NewMoneyBRL(inst.Amount),
				DueDate:    inst.DueDate,
				Status:     inst.Status,
			}
		}
	}
	return sale
}

// FromDomain populates the persistence model from a domain SaleRecord aggregate.
func (m *SaleRecordModel) FromDomain(s *ledger.SaleRecord) {
	m.FromDomainUserAggregateRoot(s.UserAggregateRoot)
	m.ExternalID = s.ExternalID
	m.Customer = s.Customer
	m.TotalAmount = s.TotalAmount.Amount()
	m.SaleDate = s.SaleDate
	m.WalletID = s.WalletID
	m.InstallmentCount = s.InstallmentCount

	m.Installments = make([]InstallmentModel, len(s.Installments))
	for i, inst := range s.Installments {
		m.Installments[i] = InstallmentModel{
			ID:         inst.ID,
			SaleID:     s.ID,
			Number:     inst.Number,
			TotalCount: inst.TotalCount,
			Amount:     inst.Amount.Amount(),
			DueDate:    inst.DueDate,
			Status:     inst.Status,
		}
	}
}

// SaleRecordModelFromDomain creates a new persistence model from a domain SaleRecord.
func SaleRecordModelFromDomain(s *ledger.SaleRecord) *SaleRecordModel {
	m := &SaleRecordModel{}
	m.FromDomain(s)
	return m
}

// LedgerTransactionModel is the persistence model for the LedgerTransaction
// aggregate. The (user_id, fingerprint) unique index created by the
// migrations is the authoritative dedup constraint; the fingerprint cache
// only reduces round trips.
type LedgerTransactionModel struct {
	UserAggregateModel
	WalletID    *uuid.UUID      `gorm:"type:uuid;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Date        time.Time       `gorm:"type:timestamptz;not null;index"`
	Description string          `gorm:"type:varchar(500)"`
	Fingerprint string          `gorm:"type:char(64);not null;index"`

	LinkedSaleID        *uuid.UUID `gorm:"type:uuid;index"`
	LinkedInstallmentID *uuid.UUID `gorm:"type:uuid;index"`
	Confidence          *float64
	IsManual            bool `gorm:"not null;default:false"`
	IsPartOfGroup       bool `gorm:"not null;default:false"`
	GroupSize           int  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (LedgerTransactionModel) TableName() string {
	return "ledger_transactions"
}

// ToDomain converts the persistence model to a domain LedgerTransaction.
func (m *LedgerTransactionModel) ToDomain() *ledger.LedgerTransaction {
	txn := &ledger.LedgerTransaction{
		WalletID:    m.WalletID,
		Amount:      valueobject.NewMoneyBRL(m.Amount),
		Date:        m.Date,
		Description: m.Description,
		Fingerprint: m.Fingerprint,
	}
	m.PopulateUserAggregateRoot(&txn.UserAggregateRoot)

	if m.LinkedSaleID != nil && m.LinkedInstallmentID != nil {
		confidence := 0.0
		if m.Confidence != nil {
			confidence = *m.Confidence
		}
		txn.Reconciliation = &ledger.ReconciliationMetadata{
			LinkedSaleID:        *m.LinkedSaleID,
			LinkedInstallmentID: *m.LinkedInstallmentID,
			Confidence:          confidence,
			IsManual:            m.IsManual,
			IsPartOfGroup:       m.IsPartOfGroup,
			GroupSize:           m.GroupSize,
		}
	}
	return txn
}

// FromDomain populates the persistence model from a domain LedgerTransaction.
func (m *LedgerTransactionModel) FromDomain(t *ledger.LedgerTransaction) {
	m.FromDomainUserAggregateRoot(t.UserAggregateRoot)
	m.WalletID = t.WalletID
	m.Amount = t.Amount.Amount()
	m.Date = t.Date
	m.Description = t.Description
	m.Fingerprint = t.Fingerprint

	if t.Reconciliation != nil {
		saleID := t.Reconciliation.LinkedSaleID
		instID := t.Reconciliation.LinkedInstallmentID
		confidence := t.Reconciliation.Confidence
		m.LinkedSaleID = &saleID
		m.LinkedInstallmentID = &instID
		m.Confidence = &confidence
		m.IsManual = t.Reconciliation.IsManual
		m.IsPartOfGroup = t.Reconciliation.IsPartOfGroup
		m.GroupSize = t.Reconciliation.GroupSize
	} else {
		m.LinkedSaleID = nil
		m.LinkedInstallmentID = nil
		m.Confidence = nil
		m.IsManual = false
		m.IsPartOfGroup = false
		m.GroupSize = 0
	}
}

// LedgerTransactionModelFromDomain creates a new persistence model from a
// domain LedgerTransaction.
func LedgerTransactionModelFromDomain(t *ledger.LedgerTransaction) *LedgerTransactionModel {
	m := &LedgerTransactionModel{}
	m.FromDomain(t)
	return m
}

// ReconciliationLinkModel is the persistence model for a reconciliation link.
// Transaction IDs are stored as a JSON array to keep N:1 links in one row.
type ReconciliationLinkModel struct {
	BaseModel
	UserID         uuid.UUID         `gorm:"type:uuid;not null;index"`
	TransactionIDs string            `gorm:"type:jsonb;not null;default:'[]'"`
	SaleID         uuid.UUID         `gorm:"type:uuid;not null;index"`
	InstallmentID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	Confidence     float64           `gorm:"not null"`
	Method         ledger.LinkMethod `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (ReconciliationLinkModel) TableName() string {
	return "reconciliation_links"
}

// ToDomain converts the persistence model to a domain ReconciliationLink.
// A transaction_ids column that does not parse is corruption, not a link
// with no transactions, and is reported as an error.
func (m *ReconciliationLinkModel) ToDomain() (*ledger.ReconciliationLink, error) {
	link := &ledger.ReconciliationLink{
		BaseEntity:    m.BaseModel.ToDomain(),
		UserID:        m.UserID,
		SaleID:        m.SaleID,
		InstallmentID: m.InstallmentID,
		Confidence:    m.Confidence,
		Method:        m.Method,
	}
	if m.TransactionIDs != "" {
		if err := json.Unmarshal([]byte(m.TransactionIDs), &link.TransactionIDs); err != nil {
			return nil, fmt.Errorf("corrupt transaction_ids on link %s: %w", m.ID, err)
		}
	}
	return link, nil
}

// FromDomain populates the persistence model from a domain ReconciliationLink.
func (m *ReconciliationLinkModel) FromDomain(l *ledger.ReconciliationLink) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.UserID = l.UserID
	m.SaleID = l.SaleID
	m.InstallmentID = l.InstallmentID
	m.Confidence = l.Confidence
	m.Method = l.Method

	if ids, err := json.Marshal(l.TransactionIDs); err == nil {
		m.TransactionIDs = string(ids)
	} else {
		m.TransactionIDs = "[]"
	}
}

// ReconciliationLinkModelFromDomain creates a new persistence model from a
// domain ReconciliationLink.
func ReconciliationLinkModelFromDomain(l *ledger.ReconciliationLink) *ReconciliationLinkModel {
	m := &ReconciliationLinkModel{}
	m.FromDomain(l)
	return m
}

// CashFlowPredictionModel is the persistence model for one predicted cash
// movement.
type CashFlowPredictionModel struct {
	BaseModel
	UserID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	SaleID        *uuid.UUID              `gorm:"type:uuid;index"`
	InstallmentID *uuid.UUID              `gorm:"type:uuid;index"`
	Amount        decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Date          time.Time               `gorm:"type:timestamptz;not null;index"`
	Probability   float64                 `gorm:"not null;default:1"`
	Source        ledger.PredictionSource `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (CashFlowPredictionModel) TableName() string {
	return "cash_flow_predictions"
}

// ToDomain converts the persistence model to a domain CashFlowPredictionEntry.
func (m *CashFlowPredictionModel) ToDomain() *ledger.CashFlowPredictionEntry {
	return &ledger.CashFlowPredictionEntry{
		BaseEntity:    m.BaseModel.ToDomain(),
		UserID:        m.UserID,
		SaleID:        m.SaleID,
		InstallmentID: m.InstallmentID,
		Amount:        valueobject.NewMoneyBRL(m.Amount),
		Date:          m.Date,
		Probability:   m.Probability,
		Source:        m.Source,
	}
}

// FromDomain populates the persistence model from a domain CashFlowPredictionEntry.
func (m *CashFlowPredictionModel) FromDomain(e *ledger.CashFlowPredictionEntry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.UserID = e.UserID
	m.SaleID = e.SaleID
	m.InstallmentID = e.InstallmentID
	m.Amount = e.Amount.Amount()
	m.Date = e.Date
	m.Probability = e.Probability
	m.Source = e.Source
}

// CashFlowPredictionModelFromDomain creates a new persistence model from a
// domain CashFlowPredictionEntry.
func CashFlowPredictionModelFromDomain(e *ledger.CashFlowPredictionEntry) *CashFlowPredictionModel {
	m := &CashFlowPredictionModel{}
	m.FromDomain(e)
	return m
}
