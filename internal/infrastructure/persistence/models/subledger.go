package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillModel is the persistence model for vendor bills
type BillModel struct {
	TenantAggregateModel
	BillNumber     string                 `gorm:"type:varchar(30);index"`
	VendorRef      string                 `gorm:"type:varchar(100);not null;index"`
	VendorName     string                 `gorm:"type:varchar(200)"`
	BillDate       time.Time              `gorm:"type:date;not null"`
	DueDate        time.Time              `gorm:"type:date;not null;index"`
	APAccountID    uuid.UUID              `gorm:"column:ap_account_id;type:uuid;not null"`
	Lines          []finance.DocumentLine `gorm:"serializer:json;type:jsonb;not null"`
	Total          decimal.Decimal        `gorm:"type:decimal(24,6);not null"`
	PaidAmount     decimal.Decimal        `gorm:"type:decimal(24,6);not null;default:0"`
	Status         finance.BillStatus     `gorm:"type:varchar(20);not null;index"`
	JournalEntryID *uuid.UUID             `gorm:"type:uuid"`
	Payments       []finance.Payment      `gorm:"serializer:json;type:jsonb"`
	ApprovedAt     *time.Time
	PaidAt         *time.Time
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill
func (m *BillModel) ToDomain() *finance.Bill {
	b := &finance.Bill{
		BillNumber:     m.BillNumber,
		VendorRef:      m.VendorRef,
		VendorName:     m.VendorName,
		BillDate:       m.BillDate.UTC(),
		DueDate:        m.DueDate.UTC(),
		APAccountID:    m.APAccountID,
		Lines:          m.Lines,
		Total:          m.Total,
		PaidAmount:     m.PaidAmount,
		Status:         m.Status,
		JournalEntryID: m.JournalEntryID,
		Payments:       m.Payments,
		ApprovedAt:     m.ApprovedAt,
		PaidAt:         m.PaidAt,
	}
	m.PopulateTenantAggregateRoot(&b.TenantAggregateRoot)
	return b
}

// FromDomain populates the persistence model from a domain Bill
func (m *BillModel) FromDomain(b *finance.Bill) {
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	m.BillNumber = b.BillNumber
	m.VendorRef = b.VendorRef
	m.VendorName = b.VendorName
	m.BillDate = b.BillDate
	m.DueDate = b.DueDate
	m.APAccountID = b.APAccountID
	m.Lines = b.Lines
	m.Total = b.Total
	m.PaidAmount = b.PaidAmount
	m.Status = b.Status
	m.JournalEntryID = b.JournalEntryID
	m.Payments = b.Payments
	m.ApprovedAt = b.ApprovedAt
	m.PaidAt = b.PaidAt
}

// InvoiceModel is the persistence model for customer invoices
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber  string                 `gorm:"type:varchar(30);index"`
	CustomerRef    string                 `gorm:"type:varchar(100);not null;index"`
	CustomerName   string                 `gorm:"type:varchar(200)"`
	InvoiceDate    time.Time              `gorm:"type:date;not null"`
	DueDate        time.Time              `gorm:"type:date;not null;index"`
	ARAccountID    uuid.UUID              `gorm:"column:ar_account_id;type:uuid;not null"`
	Lines          []finance.DocumentLine `gorm:"serializer:json;type:jsonb;not null"`
	Subtotal       decimal.Decimal        `gorm:"type:decimal(24,6);not null"`
	TaxTotal       decimal.Decimal        `gorm:"type:decimal(24,6);not null;default:0"`
	Total          decimal.Decimal        `gorm:"type:decimal(24,6);not null"`
	PaidAmount     decimal.Decimal        `gorm:"type:decimal(24,6);not null;default:0"`
	Status         finance.InvoiceStatus  `gorm:"type:varchar(20);not null;index"`
	JournalEntryID *uuid.UUID             `gorm:"type:uuid"`
	Payments       []finance.Payment      `gorm:"serializer:json;type:jsonb"`
	SentAt         *time.Time
	PaidAt         *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	inv := &finance.Invoice{
		InvoiceNumber:  m.InvoiceNumber,
		CustomerRef:    m.CustomerRef,
		CustomerName:   m.CustomerName,
		InvoiceDate:    m.InvoiceDate.UTC(),
		DueDate:        m.DueDate.UTC(),
		ARAccountID:    m.ARAccountID,
		Lines:          m.Lines,
		Subtotal:       m.Subtotal,
		TaxTotal:       m.TaxTotal,
		Total:          m.Total,
		PaidAmount:     m.PaidAmount,
		Status:         m.Status,
		JournalEntryID: m.JournalEntryID,
		Payments:       m.Payments,
		SentAt:         m.SentAt,
		PaidAt:         m.PaidAt,
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *finance.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.CustomerRef = inv.CustomerRef
	m.CustomerName = inv.CustomerName
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.ARAccountID = inv.ARAccountID
	m.Lines = inv.Lines
	m.Subtotal = inv.Subtotal
	m.TaxTotal = inv.TaxTotal
	m.Total = inv.Total
	m.PaidAmount = inv.PaidAmount
	m.Status = inv.Status
	m.JournalEntryID = inv.JournalEntryID
	m.Payments = inv.Payments
	m.SentAt = inv.SentAt
	m.PaidAt = inv.PaidAt
}

// TaxRuleModel is the persistence model for tax rules
type TaxRuleModel struct {
	TenantAggregateModel
	Code             string          `gorm:"type:varchar(20);not null;index"`
	Name             string          `gorm:"type:varchar(100)"`
	Rate             decimal.Decimal `gorm:"type:decimal(10,6);not null"`
	PayableAccountID uuid.UUID       `gorm:"type:uuid;not null"`
	IsActive         bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TaxRuleModel) TableName() string {
	return "tax_rules"
}

// ToDomain converts the persistence model to a domain TaxRule
func (m *TaxRuleModel) ToDomain() *finance.TaxRule {
	r := &finance.TaxRule{
		Code:             m.Code,
		Name:             m.Name,
		Rate:             m.Rate,
		PayableAccountID: m.PayableAccountID,
		IsActive:         m.IsActive,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain TaxRule
func (m *TaxRuleModel) FromDomain(r *finance.TaxRule) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Code = r.Code
	m.Name = r.Name
	m.Rate = r.Rate
	m.PayableAccountID = r.PayableAccountID
	m.IsActive = r.IsActive
}

// BankAccountModel is the persistence model for bank accounts
type BankAccountModel struct {
	TenantAggregateModel
	Name                 string          `gorm:"type:varchar(100);not null"`
	AccountNumber        string          `gorm:"type:varchar(50)"`
	GLAccountID          uuid.UUID       `gorm:"column:gl_account_id;type:uuid;not null"`
	Currency             string          `gorm:"type:varchar(3);not null"`
	IsActive             bool            `gorm:"not null;default:true"`
	LastReconciledAt     *time.Time      `gorm:"type:date"`
	LastStatementBalance decimal.Decimal `gorm:"type:decimal(24,6);not null;default:0"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount
func (m *BankAccountModel) ToDomain() *finance.BankAccount {
	b := &finance.BankAccount{
		Name:                 m.Name,
		AccountNumber:        m.AccountNumber,
		GLAccountID:          m.GLAccountID,
		Currency:             m.Currency,
		IsActive:             m.IsActive,
		LastReconciledAt:     m.LastReconciledAt,
		LastStatementBalance: m.LastStatementBalance,
	}
	m.PopulateTenantAggregateRoot(&b.TenantAggregateRoot)
	return b
}

// FromDomain populates the persistence model from a domain BankAccount
func (m *BankAccountModel) FromDomain(b *finance.BankAccount) {
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	m.Name = b.Name
	m.AccountNumber = b.AccountNumber
	m.GLAccountID = b.GLAccountID
	m.Currency = b.Currency
	m.IsActive = b.IsActive
	m.LastReconciledAt = b.LastReconciledAt
	m.LastStatementBalance = b.LastStatementBalance
}

// CashTransactionModel is the persistence model for deposits and disbursements
type CashTransactionModel struct {
	TenantAggregateModel
	BankAccountID    uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Type             finance.CashTransactionType `gorm:"type:varchar(20);not null"`
	Amount           decimal.Decimal             `gorm:"type:decimal(24,6);not null"`
	CounterAccountID uuid.UUID                   `gorm:"type:uuid;not null"`
	CashAccountID    uuid.UUID                   `gorm:"type:uuid;not null"`
	TransactionDate  time.Time                   `gorm:"type:date;not null;index"`
	Description      string                      `gorm:"type:varchar(500)"`
	Reference        string                      `gorm:"type:varchar(100)"`
	JournalEntryID   *uuid.UUID                  `gorm:"type:uuid"`
	Reconciled       bool                        `gorm:"not null;default:false;index"`
	ReconciliationID *uuid.UUID                  `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CashTransactionModel) TableName() string {
	return "cash_transactions"
}

// ToDomain converts the persistence model to a domain CashTransaction
func (m *CashTransactionModel) ToDomain() *finance.CashTransaction {
	t := &finance.CashTransaction{
		BankAccountID:    m.BankAccountID,
		Type:             m.Type,
		Amount:           m.Amount,
		CounterAccountID: m.CounterAccountID,
		CashAccountID:    m.CashAccountID,
		TransactionDate:  m.TransactionDate.UTC(),
		Description:      m.Description,
		Reference:        m.Reference,
		JournalEntryID:   m.JournalEntryID,
		Reconciled:       m.Reconciled,
		ReconciliationID: m.ReconciliationID,
	}
	m.PopulateTenantAggregateRoot(&t.TenantAggregateRoot)
	return t
}

// FromDomain populates the persistence model from a domain CashTransaction
func (m *CashTransactionModel) FromDomain(t *finance.CashTransaction) {
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	m.BankAccountID = t.BankAccountID
	m.Type = t.Type
	m.Amount = t.Amount
	m.CounterAccountID = t.CounterAccountID
	m.CashAccountID = t.CashAccountID
	m.TransactionDate = t.TransactionDate
	m.Description = t.Description
	m.Reference = t.Reference
	m.JournalEntryID = t.JournalEntryID
	m.Reconciled = t.Reconciled
	m.ReconciliationID = t.ReconciliationID
}

// BankReconciliationModel is the persistence model for bank reconciliations
type BankReconciliationModel struct {
	TenantAggregateModel
	BankAccountID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	StatementDate     time.Time       `gorm:"type:date;not null"`
	StatementBalance  decimal.Decimal `gorm:"type:decimal(24,6);not null"`
	BookBalance       decimal.Decimal `gorm:"type:decimal(24,6);not null"`
	Difference        decimal.Decimal `gorm:"type:decimal(24,6);not null"`
	ClearedIDs        []uuid.UUID     `gorm:"column:cleared_ids;serializer:json;type:jsonb"`
	AdjustmentEntryID *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (BankReconciliationModel) TableName() string {
	return "bank_reconciliations"
}

// ToDomain converts the persistence model to a domain BankReconciliation
func (m *BankReconciliationModel) ToDomain() *finance.BankReconciliation {
	r := &finance.BankReconciliation{
		BankAccountID:     m.BankAccountID,
		StatementDate:     m.StatementDate.UTC(),
		StatementBalance:  m.StatementBalance,
		BookBalance:       m.BookBalance,
		Difference:        m.Difference,
		ClearedIDs:        m.ClearedIDs,
		AdjustmentEntryID: m.AdjustmentEntryID,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain BankReconciliation
func (m *BankReconciliationModel) FromDomain(r *finance.BankReconciliation) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.BankAccountID = r.BankAccountID
	m.StatementDate = r.StatementDate
	m.StatementBalance = r.StatementBalance
	m.BookBalance = r.BookBalance
	m.Difference = r.Difference
	m.ClearedIDs = r.ClearedIDs
	m.AdjustmentEntryID = r.AdjustmentEntryID
}

// PayrollRunModel is the persistence model for payroll runs
type PayrollRunModel struct {
	TenantAggregateModel
	Label               string                `gorm:"type:varchar(100);not null"`
	PayDate             time.Time             `gorm:"type:date;not null"`
	GrossPay            decimal.Decimal       `gorm:"type:decimal(24,6);not null"`
	EmployerTax         decimal.Decimal       `gorm:"type:decimal(24,6);not null;default:0"`
	TaxWithheld         decimal.Decimal       `gorm:"type:decimal(24,6);not null;default:0"`
	BenefitsWithheld    decimal.Decimal       `gorm:"type:decimal(24,6);not null;default:0"`
	Status              finance.PayrollStatus `gorm:"type:varchar(20);not null"`
	JournalEntryID      *uuid.UUID            `gorm:"type:uuid"`
	DisbursementEntryID *uuid.UUID            `gorm:"type:uuid"`
	ApprovedAt          *time.Time
}

// TableName returns the table name for GORM
func (PayrollRunModel) TableName() string {
	return "payroll_runs"
}

// ToDomain converts the persistence model to a domain PayrollRun
func (m *PayrollRunModel) ToDomain() *finance.PayrollRun {
	r := &finance.PayrollRun{
		Label:               m.Label,
		PayDate:             m.PayDate.UTC(),
		GrossPay:            m.GrossPay,
		EmployerTax:         m.EmployerTax,
		TaxWithheld:         m.TaxWithheld,
		BenefitsWithheld:    m.BenefitsWithheld,
		Status:              m.Status,
		JournalEntryID:      m.JournalEntryID,
		DisbursementEntryID: m.DisbursementEntryID,
		ApprovedAt:          m.ApprovedAt,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain PayrollRun
func (m *PayrollRunModel) FromDomain(r *finance.PayrollRun) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Label = r.Label
	m.PayDate = r.PayDate
	m.GrossPay = r.GrossPay
	m.EmployerTax = r.EmployerTax
	m.TaxWithheld = r.TaxWithheld
	m.BenefitsWithheld = r.BenefitsWithheld
	m.Status = r.Status
	m.JournalEntryID = r.JournalEntryID
	m.DisbursementEntryID = r.DisbursementEntryID
	m.ApprovedAt = r.ApprovedAt
}

// FixedAssetModel is the persistence model for fixed assets
type FixedAssetModel struct {
	TenantAggregateModel
	Code                      string                     `gorm:"type:varchar(50);not null;index"`
	Name                      string                     `gorm:"type:varchar(200);not null"`
	AcquisitionDate           time.Time                  `gorm:"type:date;not null"`
	Cost                      decimal.Decimal            `gorm:"type:decimal(24,6);not null"`
	SalvageValue              decimal.Decimal            `gorm:"type:decimal(24,6);not null;default:0"`
	UsefulLifePeriods         int                        `gorm:"not null"`
	Method                    finance.DepreciationMethod `gorm:"type:varchar(30);not null"`
	AssetAccountID            uuid.UUID                  `gorm:"type:uuid;not null"`
	AccumulatedDepreciationID uuid.UUID                  `gorm:"type:uuid;not null"`
	DepreciationExpenseID     uuid.UUID                  `gorm:"type:uuid;not null"`
	AccumulatedDepreciation   decimal.Decimal            `gorm:"type:decimal(24,6);not null;default:0"`
	PeriodsDepreciated        int                        `gorm:"not null;default:0"`
	Status                    finance.AssetStatus        `gorm:"type:varchar(30);not null;index"`
	AcquisitionEntryID        *uuid.UUID                 `gorm:"type:uuid"`
	DisposalEntryID           *uuid.UUID                 `gorm:"type:uuid"`
	DisposedAt                *time.Time                 `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (FixedAssetModel) TableName() string {
	return "fixed_assets"
}

// ToDomain converts the persistence model to a domain FixedAsset
func (m *FixedAssetModel) ToDomain() *finance.FixedAsset {
	a := &finance.FixedAsset{
		Code:              m.Code,
		Name:              m.Name,
		AcquisitionDate:   m.AcquisitionDate.UTC(),
		Cost:              m.Cost,
		SalvageValue:      m.SalvageValue,
		UsefulLifePeriods: m.UsefulLifePeriods,
		Method:            m.Method,
		Accounts: finance.AssetAccounts{
			AssetAccountID:            m.AssetAccountID,
			AccumulatedDepreciationID: m.AccumulatedDepreciationID,
			DepreciationExpenseID:     m.DepreciationExpenseID,
		},
		AccumulatedDepreciation: m.AccumulatedDepreciation,
		PeriodsDepreciated:      m.PeriodsDepreciated,
		Status:                  m.Status,
		AcquisitionEntryID:      m.AcquisitionEntryID,
		DisposalEntryID:         m.DisposalEntryID,
		DisposedAt:              m.DisposedAt,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	return a
}

// FromDomain populates the persistence model from a domain FixedAsset
func (m *FixedAssetModel) FromDomain(a *finance.FixedAsset) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Code = a.Code
	m.Name = a.Name
	m.AcquisitionDate = a.AcquisitionDate
	m.Cost = a.Cost
	m.SalvageValue = a.SalvageValue
	m.UsefulLifePeriods = a.UsefulLifePeriods
	m.Method = a.Method
	m.AssetAccountID = a.Accounts.AssetAccountID
	m.AccumulatedDepreciationID = a.Accounts.AccumulatedDepreciationID
	m.DepreciationExpenseID = a.Accounts.DepreciationExpenseID
	m.AccumulatedDepreciation = a.AccumulatedDepreciation
	m.PeriodsDepreciated = a.PeriodsDepreciated
	m.Status = a.Status
	m.AcquisitionEntryID = a.AcquisitionEntryID
	m.DisposalEntryID = a.DisposalEntryID
	m.DisposedAt = a.DisposedAt
}

// DepreciationRecordModel marks one asset as depreciated for one period
type DepreciationRecordModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	AssetID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_depreciation_asset_period"`
	PeriodID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_depreciation_asset_period"`
	Amount         decimal.Decimal `gorm:"type:decimal(24,6);not null"`
	JournalEntryID uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DepreciationRecordModel) TableName() string {
	return "depreciation_records"
}

// DepreciationRecordModelFromDomain creates a persistence model from a DepreciationRecord
func DepreciationRecordModelFromDomain(r *finance.DepreciationRecord) *DepreciationRecordModel {
	return &DepreciationRecordModel{
		ID:             r.ID,
		TenantID:       r.TenantID,
		AssetID:        r.AssetID,
		PeriodID:       r.PeriodID,
		Amount:         r.Amount,
		JournalEntryID: r.JournalEntryID,
		CreatedAt:      r.CreatedAt,
	}
}
