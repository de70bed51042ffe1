package reporting

import (
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Totals are the summed debits and credits of an account's posted lines
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// SumByAccount folds posted lines into per-account totals
func SumByAccount(lines []ledger.PostedLine) map[uuid.UUID]Totals {
	out := make(map[uuid.UUID]Totals)
	for _, l := range lines {
		t := out[l.AccountID]
		t.Debit = t.Debit.Add(l.Debit)
		t.Credit = t.Credit.Add(l.Credit)
		out[l.AccountID] = t
	}
	return out
}

// NetBalance is the signed balance of acct by its normal-balance convention
func NetBalance(acct *ledger.Account, t Totals) decimal.Decimal {
	return acct.Delta(t.Debit, t.Credit)
}

// Line is one account amount on a statement
type Line struct {
	AccountID uuid.UUID       `json:"account_id,omitempty"`
	Code      string          `json:"code,omitempty"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// Section is a titled group of lines with a total
type Section struct {
	Title string          `json:"title"`
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func (s *Section) add(l Line) {
	s.Lines = append(s.Lines, l)
	s.Total = s.Total.Add(l.Amount)
}

func sortedAccounts(accounts []*ledger.Account) []*ledger.Account {
	out := append([]*ledger.Account(nil), accounts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Header is common report metadata
type Header struct {
	TenantID    uuid.UUID  `json:"tenant_id"`
	AsOf        *time.Time `json:"as_of,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
	// Provisional is set while cached balances disagree with posted lines
	Provisional bool `json:"provisional"`
}
