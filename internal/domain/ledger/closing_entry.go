package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountBalance pairs an account with its balance as of a date
type AccountBalance struct {
	Account *Account
	Balance decimal.Decimal
}

// BuildClosingLines zeroes every temporary account into retained earnings.
// Returns no lines when all revenue and expense balances are zero. The
// returned net income is revenue total minus expense total.
func BuildClosingLines(balances []AccountBalance, retainedEarningsID uuid.UUID) ([]JournalLine, decimal.Decimal) {
	var lines []JournalLine
	revenue, expense := decimal.Zero, decimal.Zero

	for _, b := range balances {
		if b.Balance.IsZero() {
			continue
		}
		acct := b.Account
		switch acct.Type {
		case AccountTypeRevenue:
			revenue = revenue.Add(b.Balance)
			if b.Balance.IsPositive() {
				lines = append(lines, NewDebitLine(acct.ID, b.Balance, "Close "+acct.Code))
			} else {
				lines = append(lines, NewCreditLine(acct.ID, b.Balance.Abs(), "Close "+acct.Code))
			}
		case AccountTypeExpense:
			expense = expense.Add(b.Balance)
			if b.Balance.IsPositive() {
				lines = append(lines, NewCreditLine(acct.ID, b.Balance, "Close "+acct.Code))
			} else {
				lines = append(lines, NewDebitLine(acct.ID, b.Balance.Abs(), "Close "+acct.Code))
			}
		}
	}
	if len(lines) == 0 {
		return nil, decimal.Zero
	}

	net := revenue.Sub(expense)
	switch {
	case net.IsPositive():
		lines = append(lines, NewCreditLine(retainedEarningsID, net, "Net income to retained earnings"))
	case net.IsNegative():
		lines = append(lines, NewDebitLine(retainedEarningsID, net.Abs(), "Net loss to retained earnings"))
	}
	return lines, net
}
