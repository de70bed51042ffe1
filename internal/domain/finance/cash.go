package finance

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccount links a bank account to the GL cash account it posts to
type BankAccount struct {
	shared.TenantAggregateRoot
	Name                 string
	AccountNumber        string
	GLAccountID          uuid.UUID
	Currency             string
	IsActive             bool
	LastReconciledAt     *time.Time
	LastStatementBalance decimal.Decimal
}

// NewBankAccount creates an active bank account
func NewBankAccount(tenantID uuid.UUID, name, accountNumber string, glAccountID uuid.UUID, currencyCode string) (*BankAccount, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Bank account name is required")
	}
	if glAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "GL cash account is required")
	}
	cur, err := ledger.NormalizeCurrency(currencyCode)
	if err != nil {
		return nil, err
	}
	return &BankAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                strings.TrimSpace(name),
		AccountNumber:       accountNumber,
		GLAccountID:         glAccountID,
		Currency:            cur,
		IsActive:            true,
	}, nil
}

// RelinkGLAccount points the bank account at a different cash account.
// Transactions already posted keep the account captured at their posting time.
func (b *BankAccount) RelinkGLAccount(glAccountID uuid.UUID) {
	b.GLAccountID = glAccountID
	b.Touch()
}

// RecordStatement remembers the last reconciled statement balance
func (b *BankAccount) RecordStatement(date time.Time, balance decimal.Decimal) {
	d := ledger.CivilDate(date)
	b.LastReconciledAt = &d
	b.LastStatementBalance = balance
	b.Touch()
}

// CashTransactionType distinguishes money in from money out
type CashTransactionType string

const (
	CashDeposit      CashTransactionType = "DEPOSIT"
	CashDisbursement CashTransactionType = "DISBURSEMENT"
)

// CashTransaction is a deposit or disbursement on a bank account
type CashTransaction struct {
	shared.TenantAggregateRoot
	BankAccountID    uuid.UUID
	Type             CashTransactionType
	Amount           decimal.Decimal
	CounterAccountID uuid.UUID

	// CashAccountID is the GL account linked to the bank account at posting time
	CashAccountID    uuid.UUID
	TransactionDate  time.Time
	Description      string
	Reference        string
	JournalEntryID   *uuid.UUID
	Reconciled       bool
	ReconciliationID *uuid.UUID
}

// NewCashTransaction creates a cash transaction against bank's current GL account
func NewCashTransaction(bank *BankAccount, txType CashTransactionType, amount decimal.Decimal, counterAccountID uuid.UUID, date time.Time, description string) (*CashTransaction, error) {
	if !bank.IsActive {
		return nil, shared.NewDomainError("INVALID_STATE", "Bank account is inactive")
	}
	if txType != CashDeposit && txType != CashDisbursement {
		return nil, shared.NewDomainErrorf("INVALID_INPUT", "Unknown cash transaction type %q", txType)
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Amount must be positive")
	}
	if counterAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Counter account is required")
	}
	return &CashTransaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(bank.TenantID),
		BankAccountID:       bank.ID,
		Type:                txType,
		Amount:              amount,
		CounterAccountID:    counterAccountID,
		CashAccountID:       bank.GLAccountID,
		TransactionDate:     ledger.CivilDate(date),
		Description:         description,
	}, nil
}

// SignedAmount returns the effect on the bank balance
func (t *CashTransaction) SignedAmount() decimal.Decimal {
	if t.Type == CashDisbursement {
		return t.Amount.Neg()
	}
	return t.Amount
}

// MarkPosted records the GL entry of the transaction
func (t *CashTransaction) MarkPosted(entryID uuid.UUID) {
	t.JournalEntryID = &entryID
	t.Touch()
}

// MarkReconciled flags the transaction as cleared on a statement
func (t *CashTransaction) MarkReconciled(reconciliationID uuid.UUID) error {
	if t.Reconciled {
		return ledger.ErrWrongStatus.WithDetail("transaction_id", t.ID.String())
	}
	t.Reconciled = true
	t.ReconciliationID = &reconciliationID
	t.Touch()
	return nil
}
