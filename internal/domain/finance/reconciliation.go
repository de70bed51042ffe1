package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankReconciliation compares a statement balance with the book balance of
// cleared transactions. A non-zero difference is booked as one adjusting entry.
type BankReconciliation struct {
	shared.TenantAggregateRoot
	BankAccountID     uuid.UUID
	StatementDate     time.Time
	StatementBalance  decimal.Decimal
	BookBalance       decimal.Decimal
	Difference        decimal.Decimal
	ClearedIDs        []uuid.UUID
	AdjustmentEntryID *uuid.UUID
}

// NewBankReconciliation computes the difference between statement and book.
// bookBalance is the previous statement balance plus cleared transactions.
func NewBankReconciliation(bank *BankAccount, statementDate time.Time, statementBalance decimal.Decimal, cleared []*CashTransaction) (*BankReconciliation, error) {
	book := bank.LastStatementBalance
	ids := make([]uuid.UUID, 0, len(cleared))
	for _, tx := range cleared {
		if tx.BankAccountID != bank.ID {
			return nil, shared.NewDomainErrorf("INVALID_INPUT", "Transaction %s belongs to another bank account", tx.ID)
		}
		if tx.Reconciled {
			return nil, ledger.ErrWrongStatus.WithDetail("transaction_id", tx.ID.String())
		}
		if tx.JournalEntryID == nil {
			return nil, shared.NewDomainErrorf("INVALID_STATE", "Transaction %s is not posted", tx.ID)
		}
		book = book.Add(tx.SignedAmount())
		ids = append(ids, tx.ID)
	}
	return &BankReconciliation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(bank.TenantID),
		BankAccountID:       bank.ID,
		StatementDate:       ledger.CivilDate(statementDate),
		StatementBalance:    statementBalance,
		BookBalance:         book,
		Difference:          statementBalance.Sub(book),
		ClearedIDs:          ids,
	}, nil
}

// NeedsAdjustment reports whether statement and book differ
func (r *BankReconciliation) NeedsAdjustment() bool {
	return !r.Difference.IsZero()
}
