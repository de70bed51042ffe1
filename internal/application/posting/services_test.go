package posting

import (
	"context"
	"testing"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPService_BillLifecycle(t *testing.T) {
	f := newFixture(t)
	bankID := f.bankAccount()

	bill, err := f.ap.CreateBill(f.ctx, f.tenantID, f.actorID, CreateBillRequest{
		VendorRef: "ACME-77",
		BillDate:  march(2),
		DueDate:   march(30),
		Lines: []DocumentLineRequest{
			{AccountID: f.id("6000"), Amount: d("800.00"), Description: "Rent"},
			{AccountID: f.id("6000"), Amount: d("200.00"), Description: "Service charge"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, f.id("2000"), bill.APAccountID, "AP defaults to the control account")
	assert.Equal(t, string(finance.BillStatusDraft), bill.Status)

	bill, err = f.ap.ApproveBill(f.ctx, f.tenantID, f.actorID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "BILL-000001", bill.BillNumber)
	f.requireBalance("6000", "1000.00")
	f.requireBalance("2000", "1000.00")

	_, err = f.ap.ApproveBill(f.ctx, f.tenantID, f.actorID, bill.ID)
	assert.ErrorIs(t, err, ledger.ErrWrongStatus)

	bill, err = f.ap.PayBill(f.ctx, f.tenantID, f.actorID, bill.ID, PaymentRequest{Amount: d("400.00"), BankAccountID: bankID, PaidOn: march(10)})
	require.NoError(t, err)
	assert.Equal(t, string(finance.BillStatusPartial), bill.Status)
	assert.True(t, bill.Outstanding.Equal(d("600.00")))
	f.requireBalance("2000", "600.00")
	f.requireBalance("1000", "-400.00")

	_, err = f.ap.PayBill(f.ctx, f.tenantID, f.actorID, bill.ID, PaymentRequest{Amount: d("600.01"), BankAccountID: bankID, PaidOn: march(11)})
	assert.Error(t, err)
	f.requireBalance("2000", "600.00")

	bill, err = f.ap.PayBill(f.ctx, f.tenantID, f.actorID, bill.ID, PaymentRequest{Amount: d("600.00"), BankAccountID: bankID, PaidOn: march(12)})
	require.NoError(t, err)
	assert.Equal(t, string(finance.BillStatusPaid), bill.Status)
	assert.Len(t, bill.Payments, 2)
	f.requireBalance("2000", "0.00")

	entry, err := f.journal.Get(f.ctx, f.tenantID, bill.Payments[0].JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-000001", entry.EntryNumber)
	assert.Equal(t, string(ledger.SourceAP), entry.SourceModule)

	open, err := f.cash.ListUnreconciled(f.ctx, f.tenantID, bankID, march(31))
	require.NoError(t, err)
	assert.Len(t, open, 2, "payments are kept as disbursements for reconciliation")
}

func TestAPService_VoidOnlyDrafts(t *testing.T) {
	f := newFixture(t)
	bill, err := f.ap.CreateBill(f.ctx, f.tenantID, f.actorID, CreateBillRequest{
		VendorRef: "V",
		BillDate:  march(2),
		Lines:     []DocumentLineRequest{{AccountID: f.id("6000"), Amount: d("10.00")}},
	})
	require.NoError(t, err)
	voided, err := f.ap.VoidBill(f.ctx, f.tenantID, f.actorID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, string(finance.BillStatusVoid), voided.Status)

	_, err = f.ap.ApproveBill(f.ctx, f.tenantID, f.actorID, bill.ID)
	assert.ErrorIs(t, err, ledger.ErrWrongStatus)
	f.requireBalance("2000", "0")
}

func TestARService_InvoiceWithTax(t *testing.T) {
	f := newFixture(t)
	bankID := f.bankAccount()

	_, err := f.ar.CreateTaxRule(f.ctx, f.tenantID, f.actorID, CreateTaxRuleRequest{
		Code: "st", Name: "State sales tax", Rate: d("0.0825"), PayableAccountID: f.id("2200"),
	})
	require.NoError(t, err)

	_, err = f.ar.CreateTaxRule(f.ctx, f.tenantID, f.actorID, CreateTaxRuleRequest{
		Code: "BAD", Rate: d("0.05"), PayableAccountID: f.id("6000"),
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidType, "tax must be payable to a liability")

	inv, err := f.ar.CreateInvoice(f.ctx, f.tenantID, f.actorID, CreateInvoiceRequest{
		CustomerRef: "CUST-9",
		InvoiceDate: march(5),
		DueDate:     march(20),
		Lines: []DocumentLineRequest{
			{AccountID: f.id("4000"), Amount: d("99.99"), TaxCode: "st"},
			{AccountID: f.id("4000"), Amount: d("50.00")},
		},
	})
	require.NoError(t, err)
	assert.True(t, inv.TaxTotal.Equal(d("8.25")), "8.25%% of 99.99 rounds half-up to 8.25, got %s", inv.TaxTotal)
	assert.True(t, inv.Total.Equal(d("158.24")))

	inv, err = f.ar.SendInvoice(f.ctx, f.tenantID, f.actorID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-000001", inv.InvoiceNumber)
	f.requireBalance("1200", "158.24")
	f.requireBalance("4000", "149.99")
	f.requireBalance("2200", "8.25")

	inv, err = f.ar.ReceivePayment(f.ctx, f.tenantID, f.actorID, inv.ID, PaymentRequest{Amount: d("158.24"), BankAccountID: bankID, PaidOn: march(18)})
	require.NoError(t, err)
	assert.Equal(t, string(finance.InvoiceStatusPaid), inv.Status)
	f.requireBalance("1200", "0.00")
	f.requireBalance("1000", "158.24")
}

func TestARService_UnknownTaxCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.ar.CreateInvoice(f.ctx, f.tenantID, f.actorID, CreateInvoiceRequest{
		CustomerRef: "C",
		InvoiceDate: march(5),
		Lines:       []DocumentLineRequest{{AccountID: f.id("4000"), Amount: d("10.00"), TaxCode: "NOPE"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE")
}

func TestCashService_TransactionsAndReconciliation(t *testing.T) {
	f := newFixture(t)
	bankID := f.bankAccount()

	dep, err := f.cash.RecordTransaction(f.ctx, f.tenantID, f.actorID, CashTransactionRequest{
		BankAccountID: bankID, Type: "deposit", Amount: d("100.00"),
		CounterAccountID: f.id("3000"), TransactionDate: march(3), Description: "Capital",
	})
	require.NoError(t, err)
	out, err := f.cash.RecordTransaction(f.ctx, f.tenantID, f.actorID, CashTransactionRequest{
		BankAccountID: bankID, Type: "disbursement", Amount: d("30.00"),
		CounterAccountID: f.id("6000"), TransactionDate: march(4), Description: "Supplies",
	})
	require.NoError(t, err)
	f.requireBalance("1000", "70.00")
	f.requireBalance("3000", "100.00")
	f.requireBalance("6000", "30.00")

	rec, err := f.cash.Reconcile(f.ctx, f.tenantID, f.actorID, ReconcileRequest{
		BankAccountID:    bankID,
		StatementDate:    march(31),
		StatementBalance: d("69.00"),
		TransactionIDs:   []uuid.UUID{dep.ID, out.ID},
	})
	require.NoError(t, err)
	assert.True(t, rec.BookBalance.Equal(d("70.00")))
	assert.True(t, rec.Difference.Equal(d("-1.00")))
	require.NotNil(t, rec.AdjustmentEntryID)
	f.requireBalance("1000", "69.00")
	f.requireBalance("7950", "1.00")

	adj, err := f.journal.Get(f.ctx, f.tenantID, *rec.AdjustmentEntryID)
	require.NoError(t, err)
	assert.Equal(t, "RECON-000001", adj.EntryNumber)

	open, err := f.cash.ListUnreconciled(f.ctx, f.tenantID, bankID, march(31))
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = f.cash.Reconcile(f.ctx, f.tenantID, f.actorID, ReconcileRequest{
		BankAccountID: bankID, StatementDate: march(31), StatementBalance: d("69.00"),
		TransactionIDs: []uuid.UUID{dep.ID},
	})
	assert.ErrorIs(t, err, ledger.ErrWrongStatus, "a cleared transaction cannot clear twice")

	clean, err := f.cash.Reconcile(f.ctx, f.tenantID, f.actorID, ReconcileRequest{
		BankAccountID: bankID, StatementDate: march(31), StatementBalance: d("69.00"),
	})
	require.NoError(t, err)
	assert.Nil(t, clean.AdjustmentEntryID, "matching statement posts nothing")
}

func TestCashService_RelinkKeepsPostedAccount(t *testing.T) {
	f := newFixture(t)
	bankID := f.bankAccount()
	first, err := f.cash.RecordTransaction(f.ctx, f.tenantID, f.actorID, CashTransactionRequest{
		BankAccountID: bankID, Type: "DEPOSIT", Amount: d("10.00"),
		CounterAccountID: f.id("3000"), TransactionDate: march(3),
	})
	require.NoError(t, err)

	_, err = f.cash.RelinkBankAccount(f.ctx, f.tenantID, f.actorID, bankID, RelinkBankAccountRequest{GLAccountID: f.id("1010")})
	require.NoError(t, err)
	_, err = f.cash.RecordTransaction(f.ctx, f.tenantID, f.actorID, CashTransactionRequest{
		BankAccountID: bankID, Type: "DEPOSIT", Amount: d("5.00"),
		CounterAccountID: f.id("3000"), TransactionDate: march(4),
	})
	require.NoError(t, err)

	assert.Equal(t, f.id("1000"), first.CashAccountID)
	f.requireBalance("1000", "10.00")
	f.requireBalance("1010", "5.00")

	_, err = f.cash.RelinkBankAccount(f.ctx, f.tenantID, f.actorID, bankID, RelinkBankAccountRequest{GLAccountID: f.id("4000")})
	assert.ErrorIs(t, err, ledger.ErrInvalidType)
}

func TestPayrollService_ApproveAndDisburse(t *testing.T) {
	f := newFixture(t)
	bankID := f.bankAccount()

	run, err := f.payroll.CreatePayrollRun(f.ctx, f.tenantID, f.actorID, CreatePayrollRunRequest{
		Label: "2026-03", PayDate: march(25),
		GrossPay: d("10000.00"), EmployerTax: d("765.00"), TaxWithheld: d("1500.00"), BenefitsWithheld: d("300.00"),
	})
	require.NoError(t, err)
	assert.True(t, run.NetPay.Equal(d("8200.00")))

	run, err = f.payroll.ApprovePayrollRun(f.ctx, f.tenantID, f.actorID, run.ID)
	require.NoError(t, err)
	f.requireBalance("6100", "10000.00")
	f.requireBalance("6110", "765.00")
	f.requireBalance("2300", "2265.00")
	f.requireBalance("2310", "300.00")
	f.requireBalance("2100", "8200.00")

	entry, err := f.journal.Get(f.ctx, f.tenantID, *run.JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, string(ledger.SourcePayroll), entry.SourceModule)
	assert.Len(t, entry.Lines, 5)

	run, err = f.payroll.DisbursePayrollRun(f.ctx, f.tenantID, f.actorID, run.ID, DisbursePayrollRequest{BankAccountID: bankID})
	require.NoError(t, err)
	assert.Equal(t, string(finance.PayrollStatusPaid), run.Status)
	f.requireBalance("2100", "0.00")
	f.requireBalance("1000", "-8200.00")

	_, err = f.payroll.DisbursePayrollRun(f.ctx, f.tenantID, f.actorID, run.ID, DisbursePayrollRequest{BankAccountID: bankID})
	assert.ErrorIs(t, err, ledger.ErrWrongStatus)
}

func TestAssetService_Lifecycle(t *testing.T) {
	f := newFixture(t)

	asset, err := f.assets.AcquireAsset(f.ctx, f.tenantID, f.actorID, AcquireAssetRequest{
		Code: "VAN-1", Name: "Delivery van", AcquisitionDate: march(1),
		Cost: d("12000.00"), SalvageValue: d("0"), UsefulLifePeriods: 12,
		Method: "straight_line", AssetAccountID: f.id("1500"), CreditAccountID: f.id("1000"),
	})
	require.NoError(t, err)
	assert.Equal(t, f.id("1590"), asset.Accounts.AccumulatedDepreciationID)
	f.requireBalance("1500", "12000.00")
	f.requireBalance("1000", "-12000.00")

	run, err := f.assets.RunDepreciation(f.ctx, f.tenantID, f.actorID, f.periodID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Depreciated)
	assert.True(t, run.Total.Equal(d("1000.00")))
	f.requireBalance("6200", "1000.00")
	f.requireBalance("1590", "1000.00")

	again, err := f.assets.RunDepreciation(f.ctx, f.tenantID, f.actorID, f.periodID)
	require.NoError(t, err)
	assert.Zero(t, again.Depreciated)
	assert.Equal(t, 1, again.Skipped)
	f.requireBalance("6200", "1000.00")

	var summary string
	err = f.uow.Do(f.ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		period, err := repos.Periods().FindByID(ctx, f.tenantID, f.periodID)
		if err != nil {
			return err
		}
		summary, err = f.assets.RunCloseTask(ctx, repos, period, f.actorID)
		return err
	})
	require.NoError(t, err)
	assert.Contains(t, summary, "0 assets depreciated")

	disposed, err := f.assets.DisposeAsset(f.ctx, f.tenantID, f.actorID, asset.ID, DisposeAssetRequest{
		Proceeds: d("11500.00"), CashAccountID: f.id("1000"), Date: march(31),
	})
	require.NoError(t, err)
	assert.Equal(t, string(finance.AssetStatusDisposed), disposed.Status)
	f.requireBalance("1500", "0.00")
	f.requireBalance("1590", "0.00")
	f.requireBalance("7900", "-500.00")

	_, err = f.assets.DisposeAsset(f.ctx, f.tenantID, f.actorID, asset.ID, DisposeAssetRequest{
		Proceeds: d("1"), CashAccountID: f.id("1000"), Date: march(31),
	})
	assert.ErrorIs(t, err, ledger.ErrWrongStatus)
}
