package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/allocation"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/retention"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"gorm.io/gorm"
)

// OutboxWriter binds the transactional outbox to a transaction
type OutboxWriter interface {
	Recorder(tx *gorm.DB) shared.EventRecorder
}

// UnitOfWorkOption configures a GormUnitOfWork
type UnitOfWorkOption func(*GormUnitOfWork)

// WithLockTimeout bounds how long a statement waits for a row lock (postgres only)
func WithLockTimeout(d time.Duration) UnitOfWorkOption {
	return func(u *GormUnitOfWork) {
		u.lockTimeout = d
	}
}

// WithSequenceGenerator replaces the table-backed number sequences, e.g. with Redis
func WithSequenceGenerator(g ledger.SequenceGenerator) UnitOfWorkOption {
	return func(u *GormUnitOfWork) {
		u.sequences = g
	}
}

// GormUnitOfWork implements unitofwork.UnitOfWork using GORM transactions.
// Every repository handed to fn shares the same transaction.
type GormUnitOfWork struct {
	db          *gorm.DB
	outbox      OutboxWriter
	sequences   ledger.SequenceGenerator
	lockTimeout time.Duration
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB, outbox OutboxWriter, opts ...UnitOfWorkOption) *GormUnitOfWork {
	u := &GormUnitOfWork{db: db, outbox: outbox}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Do runs fn in a transaction. It commits when fn returns nil and rolls back
// otherwise. Driver failures are translated to ledger errors.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos unitofwork.Repositories) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if u.lockTimeout > 0 && IsPostgres(tx) {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", u.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(ctx, u.bind(tx))
	})
	return TranslateError(err)
}

// Repos returns repositories bound to the plain connection
func (u *GormUnitOfWork) Repos() unitofwork.Repositories {
	return u.bind(u.db)
}

func (u *GormUnitOfWork) bind(tx *gorm.DB) *gormRepositories {
	r := &gormRepositories{tx: tx, sequences: u.sequences}
	if u.outbox != nil {
		r.events = u.outbox.Recorder(tx)
	}
	return r
}

// gormRepositories provides access to all repositories within a transaction
type gormRepositories struct {
	tx        *gorm.DB
	sequences ledger.SequenceGenerator
	events    shared.EventRecorder
}

func (r *gormRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormRepositories) Entries() ledger.EntryRepository {
	return NewGormJournalEntryRepository(r.tx)
}

func (r *gormRepositories) Periods() ledger.PeriodRepository {
	return NewGormPeriodRepository(r.tx)
}

func (r *gormRepositories) Closes() ledger.CloseRepository {
	return NewGormCloseRepository(r.tx)
}

// Sequences returns the configured generator or the table-backed one in this transaction
func (r *gormRepositories) Sequences() ledger.SequenceGenerator {
	if r.sequences != nil {
		return r.sequences
	}
	return NewGormSequenceGenerator(r.tx)
}

func (r *gormRepositories) AllocationRules() allocation.RuleRepository {
	return NewGormAllocationRuleRepository(r.tx)
}

func (r *gormRepositories) Allocations() allocation.Repository {
	return NewGormAllocationRepository(r.tx)
}

func (r *gormRepositories) Bills() finance.BillRepository {
	return NewGormBillRepository(r.tx)
}

func (r *gormRepositories) Invoices() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormRepositories) TaxRules() finance.TaxRuleRepository {
	return NewGormTaxRuleRepository(r.tx)
}

func (r *gormRepositories) BankAccounts() finance.BankAccountRepository {
	return NewGormBankAccountRepository(r.tx)
}

func (r *gormRepositories) CashTransactions() finance.CashTransactionRepository {
	return NewGormCashTransactionRepository(r.tx)
}

func (r *gormRepositories) Reconciliations() finance.ReconciliationRepository {
	return NewGormReconciliationRepository(r.tx)
}

func (r *gormRepositories) Payrolls() finance.PayrollRepository {
	return NewGormPayrollRepository(r.tx)
}

func (r *gormRepositories) Assets() finance.AssetRepository {
	return NewGormAssetRepository(r.tx)
}

func (r *gormRepositories) Audit() audit.Repository {
	return NewGormAuditRepository(r.tx)
}

func (r *gormRepositories) RetentionPolicies() retention.PolicyRepository {
	return NewGormRetentionPolicyRepository(r.tx)
}

func (r *gormRepositories) RetentionExecutions() retention.ExecutionRepository {
	return NewGormRetentionExecutionRepository(r.tx)
}

// Events returns the outbox recorder, or a no-op when no outbox is configured
func (r *gormRepositories) Events() shared.EventRecorder {
	if r.events == nil {
		return discardRecorder{}
	}
	return r.events
}

type discardRecorder struct{}

func (discardRecorder) Record(context.Context, ...shared.DomainEvent) error { return nil }

// Ensure GormUnitOfWork implements UnitOfWork
var _ unitofwork.UnitOfWork = (*GormUnitOfWork)(nil)

// Ensure gormRepositories implements Repositories
var _ unitofwork.Repositories = (*gormRepositories)(nil)
