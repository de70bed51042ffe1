package posting

import (
	"errors"
	"testing"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sums(req ledgerapp.DraftEntryRequest) (decimal.Decimal, decimal.Decimal) {
	dr, cr := decimal.Zero, decimal.Zero
	for _, l := range req.Lines {
		dr = dr.Add(l.Debit)
		cr = cr.Add(l.Credit)
	}
	return dr, cr
}

func assertBalanced(t *testing.T, req ledgerapp.DraftEntryRequest, total string) {
	t.Helper()
	dr, cr := sums(req)
	assert.True(t, dr.Equal(cr), "debits %s credits %s", dr, cr)
	assert.True(t, dr.Equal(d(total)), "total %s, want %s", dr, total)
	for i, l := range req.Lines {
		assert.True(t, l.Debit.IsPositive() != l.Credit.IsPositive(), "line %d must be one-sided", i+1)
	}
}

var day = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func TestBillEntry(t *testing.T) {
	tenant, ap, rent, power := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	bill, err := finance.NewBill(tenant, "V-1", "Landlord", day, time.Time{}, ap, []finance.DocumentLine{
		{AccountID: rent, Amount: d("1000.00")},
		{AccountID: power, Amount: d("250.50")},
	})
	require.NoError(t, err)

	req := BillEntry(bill)
	assertBalanced(t, req, "1250.50")
	assert.Equal(t, string(ledger.SourceAP), req.SourceModule)
	assert.Equal(t, bill.ID, *req.SourceID)
	last := req.Lines[len(req.Lines)-1]
	assert.Equal(t, ap, last.AccountID)
	assert.True(t, last.Credit.Equal(d("1250.50")))

	pay := BillPaymentEntry(bill, d("500.00"), uuid.New(), day)
	assertBalanced(t, pay, "500.00")
	assert.Equal(t, ap, pay.Lines[0].AccountID)
}

func TestInvoiceEntry_TaxRoutesToRulePayable(t *testing.T) {
	tenant, ar, sales, services := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	stateTax, cityTax := uuid.New(), uuid.New()
	inv, err := finance.NewInvoice(tenant, "C-1", "Customer", day, time.Time{}, ar, []finance.DocumentLine{
		{AccountID: sales, Amount: d("100.00"), TaxCode: "ST"},
		{AccountID: services, Amount: d("200.00"), TaxCode: "ST"},
		{AccountID: services, Amount: d("50.00"), TaxCode: "CITY"},
	})
	require.NoError(t, err)
	inv.ApplyTax(0, d("8.00"))
	inv.ApplyTax(1, d("16.00"))
	inv.ApplyTax(2, d("1.00"))

	rules := map[string]*finance.TaxRule{
		"ST":   {Code: "ST", PayableAccountID: stateTax},
		"CITY": {Code: "CITY", PayableAccountID: cityTax},
	}
	req, err := InvoiceEntry(inv, rules)
	require.NoError(t, err)
	assertBalanced(t, req, "375.00")

	taxCredits := map[uuid.UUID]decimal.Decimal{}
	for _, l := range req.Lines {
		if l.AccountID == stateTax || l.AccountID == cityTax {
			taxCredits[l.AccountID] = l.Credit
		}
	}
	assert.True(t, taxCredits[stateTax].Equal(d("24.00")))
	assert.True(t, taxCredits[cityTax].Equal(d("1.00")))

	_, err = InvoiceEntry(inv, map[string]*finance.TaxRule{"ST": rules["ST"]})
	require.ErrorIs(t, err, ledger.ErrInvalidLine)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, []int{3}, domainErr.Lines)
	assert.Equal(t, "CITY", domainErr.Details["tax_code"])
	assert.Equal(t, ledger.KindValidation, ledger.KindOfError(err))
}

func TestCashEntry_Direction(t *testing.T) {
	tenant, cash, counter := uuid.New(), uuid.New(), uuid.New()
	bank, err := finance.NewBankAccount(tenant, "Operating", "001", cash, "USD")
	require.NoError(t, err)

	dep, err := finance.NewCashTransaction(bank, finance.CashDeposit, d("75.00"), counter, day, "owner deposit")
	require.NoError(t, err)
	req := CashEntry(dep)
	assertBalanced(t, req, "75.00")
	assert.Equal(t, cash, req.Lines[0].AccountID)
	assert.True(t, req.Lines[0].Debit.IsPositive())

	out, err := finance.NewCashTransaction(bank, finance.CashDisbursement, d("20.00"), counter, day, "supplies")
	require.NoError(t, err)
	req = CashEntry(out)
	assertBalanced(t, req, "20.00")
	assert.Equal(t, cash, req.Lines[1].AccountID)
	assert.True(t, req.Lines[1].Credit.IsPositive())

	bank.RelinkGLAccount(uuid.New())
	assert.Equal(t, cash, CashEntry(out).Lines[1].AccountID, "posted transactions keep the captured cash account")
}

func TestPayrollEntry_Composite(t *testing.T) {
	run, err := finance.NewPayrollRun(uuid.New(), "2026-03", day, d("10000.00"), d("765.00"), d("1500.00"), d("300.00"))
	require.NoError(t, err)
	accts := PayrollAccounts{
		GrossPayExpense:    uuid.New(),
		EmployerTaxExpense: uuid.New(),
		TaxWithholding:     uuid.New(),
		BenefitWithholding: uuid.New(),
		NetPayClearing:     uuid.New(),
	}

	req := PayrollEntry(run, accts)
	assertBalanced(t, req, "10765.00")
	byAccount := map[uuid.UUID]ledgerapp.LineRequest{}
	for _, l := range req.Lines {
		byAccount[l.AccountID] = l
	}
	assert.True(t, byAccount[accts.TaxWithholding].Credit.Equal(d("2265.00")))
	assert.True(t, byAccount[accts.NetPayClearing].Credit.Equal(d("8200.00")))

	noExtras, err := finance.NewPayrollRun(uuid.New(), "bonus", day, d("500.00"), decimal.Zero, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	req = PayrollEntry(noExtras, accts)
	assertBalanced(t, req, "500.00")
	assert.Len(t, req.Lines, 2)
}

func TestDisposalEntry_GainAndLoss(t *testing.T) {
	accts := finance.AssetAccounts{AssetAccountID: uuid.New(), AccumulatedDepreciationID: uuid.New(), DepreciationExpenseID: uuid.New()}
	newAsset := func() *finance.FixedAsset {
		a, err := finance.NewFixedAsset(uuid.New(), "VAN-1", "Van", day, d("12000.00"), d("0"), 12, finance.DepreciationStraightLine, accts)
		require.NoError(t, err)
		a.RecordDepreciation(d("4000.00"))
		return a
	}
	cash, gl := uuid.New(), uuid.New()

	gain := DisposalEntry(newAsset(), d("9000.00"), cash, gl, day)
	assertBalanced(t, gain, "13000.00")
	last := gain.Lines[len(gain.Lines)-1]
	assert.Equal(t, gl, last.AccountID)
	assert.True(t, last.Credit.Equal(d("1000.00")))

	loss := DisposalEntry(newAsset(), d("5000.00"), cash, gl, day)
	assertBalanced(t, loss, "12000.00")
	last = loss.Lines[len(loss.Lines)-1]
	assert.True(t, last.Debit.Equal(d("3000.00")))

	even := DisposalEntry(newAsset(), d("8000.00"), cash, gl, day)
	assertBalanced(t, even, "12000.00")
	assert.Len(t, even.Lines, 3)
}

func TestReconciliationEntry_Direction(t *testing.T) {
	cash, adj := uuid.New(), uuid.New()
	rec := &finance.BankReconciliation{StatementDate: day, Difference: d("-12.50")}
	req := ReconciliationEntry(rec, cash, adj)
	assertBalanced(t, req, "12.50")
	assert.Equal(t, cash, req.Lines[1].AccountID)

	rec.Difference = d("3.00")
	req = ReconciliationEntry(rec, cash, adj)
	assertBalanced(t, req, "3.00")
	assert.Equal(t, cash, req.Lines[0].AccountID)
}
