package finance

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBill_PaymentLifecycle(t *testing.T) {
	bill, err := NewBill(uuid.New(), "V-1", "Vendor", time.Now(), time.Time{}, uuid.New(), []DocumentLine{
		{AccountID: uuid.New(), Amount: d("60")},
		{AccountID: uuid.New(), Amount: d("40")},
	})
	require.NoError(t, err)
	assert.True(t, bill.Total.Equal(d("100")))

	assert.ErrorIs(t, bill.CheckPayment(d("10")), ledger.ErrWrongStatus)
	require.NoError(t, bill.Approve("BILL-000001", uuid.New()))

	require.NoError(t, bill.ApplyPayment(d("30"), uuid.New(), uuid.New(), time.Now()))
	assert.Equal(t, BillStatusPartial, bill.Status)
	assert.Error(t, bill.CheckPayment(d("71")))

	require.NoError(t, bill.ApplyPayment(d("70"), uuid.New(), uuid.New(), time.Now()))
	assert.Equal(t, BillStatusPaid, bill.Status)
	assert.True(t, bill.Outstanding().IsZero())
	assert.Len(t, bill.Payments, 2)
}

func TestBill_InvalidLine(t *testing.T) {
	_, err := NewBill(uuid.New(), "V-1", "Vendor", time.Now(), time.Time{}, uuid.New(), []DocumentLine{
		{AccountID: uuid.New(), Amount: d("60")},
		{AccountID: uuid.New(), Amount: decimal.Zero},
	})
	require.ErrorIs(t, err, ledger.ErrInvalidLine)
}

func TestInvoice_TaxAndPayment(t *testing.T) {
	inv, err := NewInvoice(uuid.New(), "C-1", "Customer", time.Now(), time.Time{}, uuid.New(), []DocumentLine{
		{AccountID: uuid.New(), Amount: d("200"), TaxCode: "VAT"},
	})
	require.NoError(t, err)

	rule, err := NewTaxRule(inv.TenantID, "vat", "VAT", d("0.075"), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "VAT", rule.Code)

	inv.ApplyTax(0, RateTaxCalculator{}.Calculate(rule, inv.Lines[0].Amount, 2))
	assert.True(t, inv.TaxTotal.Equal(d("15")))
	assert.True(t, inv.Total.Equal(d("215")))

	require.NoError(t, inv.MarkSent("INV-000001", uuid.New()))
	require.NoError(t, inv.ApplyPayment(d("215"), uuid.New(), uuid.New(), time.Now()))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
}

func TestPayrollRun(t *testing.T) {
	run, err := NewPayrollRun(uuid.New(), "2024-03", time.Now(), d("10000"), d("765"), d("2000"), d("500"))
	require.NoError(t, err)
	assert.True(t, run.NetPay().Equal(d("7500")))

	assert.ErrorIs(t, run.MarkDisbursed(uuid.New()), ledger.ErrWrongStatus)
	require.NoError(t, run.Approve(uuid.New()))
	require.NoError(t, run.MarkDisbursed(uuid.New()))
	assert.Equal(t, PayrollStatusPaid, run.Status)

	_, err = NewPayrollRun(uuid.New(), "bad", time.Now(), d("100"), decimal.Zero, d("80"), d("20"))
	assert.Error(t, err)
}

func TestBankReconciliation(t *testing.T) {
	bank, err := NewBankAccount(uuid.New(), "Operating", "****1234", uuid.New(), "USD")
	require.NoError(t, err)

	dep, _ := NewCashTransaction(bank, CashDeposit, d("500"), uuid.New(), time.Now(), "deposit")
	dep.MarkPosted(uuid.New())
	wd, _ := NewCashTransaction(bank, CashDisbursement, d("120"), uuid.New(), time.Now(), "rent")
	wd.MarkPosted(uuid.New())

	rec, err := NewBankReconciliation(bank, time.Now(), d("375"), []*CashTransaction{dep, wd})
	require.NoError(t, err)
	assert.True(t, rec.BookBalance.Equal(d("380")))
	assert.True(t, rec.Difference.Equal(d("-5")))
	assert.True(t, rec.NeedsAdjustment())

	unposted, _ := NewCashTransaction(bank, CashDeposit, d("1"), uuid.New(), time.Now(), "x")
	_, err = NewBankReconciliation(bank, time.Now(), d("1"), []*CashTransaction{unposted})
	assert.Error(t, err)
}

func TestCashTransaction_CapturesLinkedAccount(t *testing.T) {
	bank, _ := NewBankAccount(uuid.New(), "Operating", "", uuid.New(), "USD")
	original := bank.GLAccountID

	tx, err := NewCashTransaction(bank, CashDeposit, d("10"), uuid.New(), time.Now(), "")
	require.NoError(t, err)
	bank.RelinkGLAccount(uuid.New())

	assert.Equal(t, original, tx.CashAccountID)
}
