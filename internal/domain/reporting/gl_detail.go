package reporting

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GLDetailRow is one posted line with a running balance for its account
type GLDetailRow struct {
	EntryID        uuid.UUID           `json:"entry_id"`
	EntryNumber    string              `json:"entry_number"`
	EntryDate      time.Time           `json:"entry_date"`
	SourceModule   ledger.SourceModule `json:"source_module"`
	LineNumber     int                 `json:"line_number"`
	AccountID      uuid.UUID           `json:"account_id"`
	AccountCode    string              `json:"account_code"`
	Description    string              `json:"description"`
	Debit          decimal.Decimal     `json:"debit"`
	Credit         decimal.Decimal     `json:"credit"`
	RunningBalance decimal.Decimal     `json:"running_balance"`
}

// GLDetail is a filtered line listing
type GLDetail struct {
	Header
	Opening map[uuid.UUID]decimal.Decimal `json:"opening"`
	Rows    []GLDetailRow                 `json:"rows"`
}

// BuildGLDetail lists lines in the order given (entry_date, entry_number,
// line_number) and carries a running balance per account from opening.
func BuildGLDetail(tenantID uuid.UUID, start, end *time.Time, accounts map[uuid.UUID]*ledger.Account, lines []ledger.PostedLine, opening map[uuid.UUID]decimal.Decimal) *GLDetail {
	gl := &GLDetail{
		Header:  Header{TenantID: tenantID, Start: start, End: end, GeneratedAt: time.Now().UTC()},
		Opening: opening,
	}
	running := make(map[uuid.UUID]decimal.Decimal, len(opening))
	for id, amt := range opening {
		running[id] = amt
	}
	for _, l := range lines {
		code := ""
		delta := l.Debit.Sub(l.Credit)
		if acct, ok := accounts[l.AccountID]; ok {
			code = acct.Code
			delta = acct.Delta(l.Debit, l.Credit)
		}
		running[l.AccountID] = running[l.AccountID].Add(delta)
		desc := l.LineMemo
		if desc == "" {
			desc = l.Description
		}
		gl.Rows = append(gl.Rows, GLDetailRow{
			EntryID:        l.EntryID,
			EntryNumber:    l.EntryNumber,
			EntryDate:      l.EntryDate,
			SourceModule:   l.SourceModule,
			LineNumber:     l.LineNumber,
			AccountID:      l.AccountID,
			AccountCode:    code,
			Description:    desc,
			Debit:          l.Debit,
			Credit:         l.Credit,
			RunningBalance: running[l.AccountID],
		})
	}
	return gl
}
