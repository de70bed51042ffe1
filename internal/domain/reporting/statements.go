package reporting

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrentEarningsLabel names the synthetic equity line carrying unclosed income
const CurrentEarningsLabel = "Current Year Earnings"

// BalanceSheet shows assets against liabilities and equity as of a date
type BalanceSheet struct {
	Header
	Assets                    Section         `json:"assets"`
	Liabilities               Section         `json:"liabilities"`
	Equity                    Section         `json:"equity"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
}

// BuildBalanceSheet computes the balance sheet. Revenue and expense balances
// not yet closed to retained earnings appear as Current Year Earnings.
func BuildBalanceSheet(tenantID uuid.UUID, asOf time.Time, accounts []*ledger.Account, totals map[uuid.UUID]Totals) (*BalanceSheet, error) {
	day := ledger.CivilDate(asOf)
	bs := &BalanceSheet{
		Header:      Header{TenantID: tenantID, AsOf: &day, GeneratedAt: time.Now().UTC()},
		Assets:      Section{Title: "Assets", Total: decimal.Zero},
		Liabilities: Section{Title: "Liabilities", Total: decimal.Zero},
		Equity:      Section{Title: "Equity", Total: decimal.Zero},
	}

	earnings := decimal.Zero
	for _, acct := range sortedAccounts(accounts) {
		net := NetBalance(acct, totals[acct.ID])
		line := Line{AccountID: acct.ID, Code: acct.Code, Name: acct.Name, Amount: net}
		switch acct.Type {
		case ledger.AccountTypeAsset:
			if !net.IsZero() || acct.IsActive {
				bs.Assets.add(line)
			}
		case ledger.AccountTypeLiability:
			if !net.IsZero() || acct.IsActive {
				bs.Liabilities.add(line)
			}
		case ledger.AccountTypeEquity:
			if !net.IsZero() || acct.IsActive {
				bs.Equity.add(line)
			}
		case ledger.AccountTypeRevenue:
			earnings = earnings.Add(net)
		case ledger.AccountTypeExpense:
			earnings = earnings.Sub(net)
		}
	}
	bs.Equity.add(Line{Name: CurrentEarningsLabel, Amount: earnings})
	bs.TotalLiabilitiesAndEquity = bs.Liabilities.Total.Add(bs.Equity.Total)

	if !bs.Assets.Total.Equal(bs.TotalLiabilitiesAndEquity) {
		bs.Provisional = true
		return bs, ledger.ErrLedgerInconsistency.
			WithDetail("assets", bs.Assets.Total.String()).
			WithDetail("liabilities_and_equity", bs.TotalLiabilitiesAndEquity.String())
	}
	return bs, nil
}

// IncomeStatement shows revenue less expense over a date range
type IncomeStatement struct {
	Header
	Revenue   Section         `json:"revenue"`
	Expenses  Section         `json:"expenses"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// BuildIncomeStatement computes net income from movements within the range.
// totals must exclude closing entries, otherwise a closed period nets to zero.
func BuildIncomeStatement(tenantID uuid.UUID, start, end time.Time, accounts []*ledger.Account, totals map[uuid.UUID]Totals) *IncomeStatement {
	s, e := ledger.CivilDate(start), ledger.CivilDate(end)
	is := &IncomeStatement{
		Header:   Header{TenantID: tenantID, Start: &s, End: &e, GeneratedAt: time.Now().UTC()},
		Revenue:  Section{Title: "Revenue", Total: decimal.Zero},
		Expenses: Section{Title: "Expenses", Total: decimal.Zero},
	}
	for _, acct := range sortedAccounts(accounts) {
		t, ok := totals[acct.ID]
		if !ok {
			continue
		}
		net := NetBalance(acct, t)
		line := Line{AccountID: acct.ID, Code: acct.Code, Name: acct.Name, Amount: net}
		switch acct.Type {
		case ledger.AccountTypeRevenue:
			is.Revenue.add(line)
		case ledger.AccountTypeExpense:
			is.Expenses.add(line)
		}
	}
	is.NetIncome = is.Revenue.Total.Sub(is.Expenses.Total)
	return is
}

// CashFlowStatement derives cash movements by the cash-flow category of the
// counter accounts of each cash entry
type CashFlowStatement struct {
	Header
	Operating   Section         `json:"operating"`
	Investing   Section         `json:"investing"`
	Financing   Section         `json:"financing"`
	NetChange   decimal.Decimal `json:"net_change"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
	ClosingCash decimal.Decimal `json:"closing_cash"`
}

// BuildCashFlow attributes each entry's cash movement to its non-cash lines.
// A credit to a counter account is an inflow, a debit an outflow. Accounts
// without a category count as operating.
func BuildCashFlow(tenantID uuid.UUID, start, end time.Time, accounts []*ledger.Account, lines []ledger.PostedLine, openingCash decimal.Decimal) *CashFlowStatement {
	s, e := ledger.CivilDate(start), ledger.CivilDate(end)
	cf := &CashFlowStatement{
		Header:      Header{TenantID: tenantID, Start: &s, End: &e, GeneratedAt: time.Now().UTC()},
		Operating:   Section{Title: "Operating activities", Total: decimal.Zero},
		Investing:   Section{Title: "Investing activities", Total: decimal.Zero},
		Financing:   Section{Title: "Financing activities", Total: decimal.Zero},
		OpeningCash: openingCash,
	}

	byID := make(map[uuid.UUID]*ledger.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	isCash := func(id uuid.UUID) bool {
		a, ok := byID[id]
		return ok && a.CashFlowCategory == ledger.CashFlowCash
	}

	byEntry := make(map[uuid.UUID][]ledger.PostedLine)
	var order []uuid.UUID
	for _, l := range lines {
		if _, seen := byEntry[l.EntryID]; !seen {
			order = append(order, l.EntryID)
		}
		byEntry[l.EntryID] = append(byEntry[l.EntryID], l)
	}

	flows := map[ledger.CashFlowCategory]map[uuid.UUID]decimal.Decimal{}
	for _, entryID := range order {
		entryLines := byEntry[entryID]
		touchesCash := false
		for _, l := range entryLines {
			if isCash(l.AccountID) {
				touchesCash = true
				cf.NetChange = cf.NetChange.Add(l.Debit.Sub(l.Credit))
			}
		}
		if !touchesCash {
			continue
		}
		for _, l := range entryLines {
			if isCash(l.AccountID) {
				continue
			}
			cat := ledger.CashFlowOperating
			if a, ok := byID[l.AccountID]; ok && (a.CashFlowCategory == ledger.CashFlowInvesting || a.CashFlowCategory == ledger.CashFlowFinancing) {
				cat = a.CashFlowCategory
			}
			if flows[cat] == nil {
				flows[cat] = map[uuid.UUID]decimal.Decimal{}
			}
			flows[cat][l.AccountID] = flows[cat][l.AccountID].Add(l.Credit.Sub(l.Debit))
		}
	}

	sections := map[ledger.CashFlowCategory]*Section{
		ledger.CashFlowOperating: &cf.Operating,
		ledger.CashFlowInvesting: &cf.Investing,
		ledger.CashFlowFinancing: &cf.Financing,
	}
	for _, acct := range sortedAccounts(accounts) {
		for cat, sec := range sections {
			if amt, ok := flows[cat][acct.ID]; ok {
				sec.add(Line{AccountID: acct.ID, Code: acct.Code, Name: acct.Name, Amount: amt})
			}
		}
	}
	cf.ClosingCash = cf.OpeningCash.Add(cf.NetChange)
	return cf
}
