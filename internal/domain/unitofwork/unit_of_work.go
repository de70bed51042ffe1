// Package unitofwork defines the transactional boundary of the accounting core.
package unitofwork

import (
	"context"

	"github.com/erp/ledger/internal/domain/allocation"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/retention"
	"github.com/erp/ledger/internal/domain/shared"
)

// Repositories is the set of repositories bound to one transaction
type Repositories interface {
	Accounts() ledger.AccountRepository
	Entries() ledger.EntryRepository
	Periods() ledger.PeriodRepository
	Closes() ledger.CloseRepository
	Sequences() ledger.SequenceGenerator

	AllocationRules() allocation.RuleRepository
	Allocations() allocation.Repository

	Bills() finance.BillRepository
	Invoices() finance.InvoiceRepository
	TaxRules() finance.TaxRuleRepository
	BankAccounts() finance.BankAccountRepository
	CashTransactions() finance.CashTransactionRepository
	Reconciliations() finance.ReconciliationRepository
	Payrolls() finance.PayrollRepository
	Assets() finance.AssetRepository

	Audit() audit.Repository
	RetentionPolicies() retention.PolicyRepository
	RetentionExecutions() retention.ExecutionRepository

	// Events stores domain events in the transactional outbox
	Events() shared.EventRecorder
}

// UnitOfWork runs a function inside one database transaction. Either every
// write made through repos commits or none does.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	// Repos returns repositories bound to the plain connection for reads
	Repos() Repositories
}
