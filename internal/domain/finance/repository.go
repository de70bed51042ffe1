package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BillRepository persists vendor bills
type BillRepository interface {
	Create(ctx context.Context, bill *Bill) error
	Save(ctx context.Context, bill *Bill) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Bill, error)
	// ListOpen returns approved or partially paid bills dated on or before asOf
	ListOpen(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]*Bill, error)
}

// InvoiceRepository persists customer invoices
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	Save(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	// ListOpen returns sent or partially paid invoices dated on or before asOf
	ListOpen(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]*Invoice, error)
}

// TaxRuleRepository persists tax rules
type TaxRuleRepository interface {
	Create(ctx context.Context, rule *TaxRule) error
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*TaxRule, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*TaxRule, error)
}

// BankAccountRepository persists bank accounts
type BankAccountRepository interface {
	Create(ctx context.Context, account *BankAccount) error
	Save(ctx context.Context, account *BankAccount) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*BankAccount, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*BankAccount, error)
}

// CashTransactionRepository persists cash transactions
type CashTransactionRepository interface {
	Create(ctx context.Context, tx *CashTransaction) error
	Save(ctx context.Context, tx *CashTransaction) error
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*CashTransaction, error)
	ListUnreconciled(ctx context.Context, tenantID, bankAccountID uuid.UUID, upTo time.Time) ([]*CashTransaction, error)
}

// ReconciliationRepository persists bank reconciliations
type ReconciliationRepository interface {
	Create(ctx context.Context, rec *BankReconciliation) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*BankReconciliation, error)
}

// PayrollRepository persists payroll runs
type PayrollRepository interface {
	Create(ctx context.Context, run *PayrollRun) error
	Save(ctx context.Context, run *PayrollRun) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*PayrollRun, error)
}

// AssetRepository persists fixed assets and their depreciation history
type AssetRepository interface {
	Create(ctx context.Context, asset *FixedAsset) error
	Save(ctx context.Context, asset *FixedAsset) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FixedAsset, error)
	ListDepreciable(ctx context.Context, tenantID uuid.UUID, acquiredBy time.Time) ([]*FixedAsset, error)
	RecordDepreciation(ctx context.Context, rec *DepreciationRecord) error
	HasDepreciation(ctx context.Context, tenantID, assetID, periodID uuid.UUID) (bool, error)
}
