package reporting

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account on the trial balance
type TrialBalanceRow struct {
	AccountID     uuid.UUID            `json:"account_id"`
	Code          string               `json:"code"`
	Name          string               `json:"name"`
	Type          ledger.AccountType   `json:"type"`
	NormalBalance ledger.NormalBalance `json:"normal_balance"`
	Debit         decimal.Decimal      `json:"debit"`
	Credit        decimal.Decimal      `json:"credit"`
	Balance       decimal.Decimal      `json:"balance"`
}

// BalanceMismatch is an account whose cached balance differs from its lines
type BalanceMismatch struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	Cached    decimal.Decimal `json:"cached"`
	Computed  decimal.Decimal `json:"computed"`
}

// TrialBalance lists debit-side and credit-side balances as of a date
type TrialBalance struct {
	Header
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Mismatches  []BalanceMismatch `json:"mismatches,omitempty"`
}

// IsBalanced reports whether debit-side equals credit-side
func (tb *TrialBalance) IsBalanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}

// BuildTrialBalance computes the trial balance from posted totals. Every
// active account is listed; inactive accounts appear only with a non-zero
// balance. An unequal result is returned together with LEDGER_INCONSISTENCY.
func BuildTrialBalance(tenantID uuid.UUID, asOf time.Time, accounts []*ledger.Account, totals map[uuid.UUID]Totals) (*TrialBalance, error) {
	day := ledger.CivilDate(asOf)
	tb := &TrialBalance{
		Header:      Header{TenantID: tenantID, AsOf: &day, GeneratedAt: time.Now().UTC()},
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}

	for _, acct := range sortedAccounts(accounts) {
		net := NetBalance(acct, totals[acct.ID])
		if !acct.IsActive && net.IsZero() {
			continue
		}
		row := TrialBalanceRow{
			AccountID:     acct.ID,
			Code:          acct.Code,
			Name:          acct.Name,
			Type:          acct.Type,
			NormalBalance: acct.NormalBalance,
			Debit:         decimal.Zero,
			Credit:        decimal.Zero,
			Balance:       net,
		}
		debitSide := (acct.NormalBalance == ledger.NormalBalanceDebit) == !net.IsNegative()
		if debitSide {
			row.Debit = net.Abs()
		} else {
			row.Credit = net.Abs()
		}
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}

	if !tb.IsBalanced() {
		tb.Provisional = true
		return tb, ledger.ErrLedgerInconsistency.
			WithDetail("total_debit", tb.TotalDebit.String()).
			WithDetail("total_credit", tb.TotalCredit.String())
	}
	return tb, nil
}

// FindMismatches compares cached balances with computed nets
func FindMismatches(accounts []*ledger.Account, totals map[uuid.UUID]Totals) []BalanceMismatch {
	var out []BalanceMismatch
	for _, acct := range sortedAccounts(accounts) {
		computed := NetBalance(acct, totals[acct.ID])
		if !computed.Equal(acct.CurrentBalance) {
			out = append(out, BalanceMismatch{
				AccountID: acct.ID,
				Code:      acct.Code,
				Cached:    acct.CurrentBalance,
				Computed:  computed,
			})
		}
	}
	return out
}
