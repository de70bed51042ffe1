// Package posting turns subledger documents into balanced journal entries.
// Translators are pure; the services load documents, resolve control
// accounts and post through the journal service in one transaction.
package posting

import (
	"fmt"
	"sort"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func debit(accountID uuid.UUID, amount decimal.Decimal, desc string) ledgerapp.LineRequest {
	return ledgerapp.LineRequest{AccountID: accountID, Debit: amount, Description: desc}
}

func credit(accountID uuid.UUID, amount decimal.Decimal, desc string) ledgerapp.LineRequest {
	return ledgerapp.LineRequest{AccountID: accountID, Credit: amount, Description: desc}
}

func entry(date time.Time, source ledger.SourceModule, sourceID uuid.UUID, description, reference string, lines ...ledgerapp.LineRequest) ledgerapp.DraftEntryRequest {
	id := sourceID
	return ledgerapp.DraftEntryRequest{
		EntryDate:    date,
		Description:  description,
		Reference:    reference,
		SourceModule: string(source),
		SourceID:     &id,
		Lines:        lines,
	}
}

// BillEntry debits each bill line and credits accounts payable for the total
func BillEntry(bill *finance.Bill) ledgerapp.DraftEntryRequest {
	lines := make([]ledgerapp.LineRequest, 0, len(bill.Lines)+1)
	for _, l := range bill.Lines {
		lines = append(lines, debit(l.AccountID, l.Amount, l.Description))
	}
	lines = append(lines, credit(bill.APAccountID, bill.Total, "Accounts payable "+bill.VendorRef))
	return entry(bill.BillDate, ledger.SourceAP, bill.ID, "Vendor bill "+bill.VendorRef, bill.VendorRef, lines...)
}

// BillPaymentEntry debits accounts payable and credits the bank's cash account
func BillPaymentEntry(bill *finance.Bill, amount decimal.Decimal, cashAccountID uuid.UUID, paidOn time.Time) ledgerapp.DraftEntryRequest {
	return entry(paidOn, ledger.SourceAP, bill.ID, "Payment of "+bill.BillNumber, bill.BillNumber,
		debit(bill.APAccountID, amount, "Accounts payable"),
		credit(cashAccountID, amount, "Cash paid"),
	)
}

// InvoiceEntry debits accounts receivable for the total, credits revenue
// per line and credits tax to the payable account of each line's tax rule.
// Tax lines are merged per payable account. A taxed invoice line whose code
// has no rule fails with INVALID_LINE numbered by its invoice position.
func InvoiceEntry(inv *finance.Invoice, taxRules map[string]*finance.TaxRule) (ledgerapp.DraftEntryRequest, error) {
	lines := []ledgerapp.LineRequest{debit(inv.ARAccountID, inv.Total, "Accounts receivable "+inv.CustomerRef)}
	taxByAccount := make(map[uuid.UUID]decimal.Decimal)
	for i, l := range inv.Lines {
		lines = append(lines, credit(l.AccountID, l.Amount, l.Description))
		if l.TaxAmount.IsZero() {
			continue
		}
		rule, ok := taxRules[l.TaxCode]
		if !ok {
			return ledgerapp.DraftEntryRequest{}, ledger.ErrInvalidLine.
				WithLines(i + 1).
				WithDetail("tax_code", l.TaxCode)
		}
		taxByAccount[rule.PayableAccountID] = taxByAccount[rule.PayableAccountID].Add(l.TaxAmount)
	}

	accounts := make([]uuid.UUID, 0, len(taxByAccount))
	for id := range taxByAccount {
		accounts = append(accounts, id)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].String() < accounts[j].String() })
	for _, id := range accounts {
		lines = append(lines, credit(id, taxByAccount[id], "Sales tax payable"))
	}
	return entry(inv.InvoiceDate, ledger.SourceAR, inv.ID, "Customer invoice "+inv.CustomerRef, inv.CustomerRef, lines...), nil
}

// InvoicePaymentEntry debits the bank's cash account and credits accounts receivable
func InvoicePaymentEntry(inv *finance.Invoice, amount decimal.Decimal, cashAccountID uuid.UUID, paidOn time.Time) ledgerapp.DraftEntryRequest {
	return entry(paidOn, ledger.SourceAR, inv.ID, "Receipt for "+inv.InvoiceNumber, inv.InvoiceNumber,
		debit(cashAccountID, amount, "Cash received"),
		credit(inv.ARAccountID, amount, "Accounts receivable"),
	)
}

// CashEntry posts a deposit as debit cash / credit counter account and a
// disbursement the other way round. The cash account is the one captured
// on the transaction.
func CashEntry(tx *finance.CashTransaction) ledgerapp.DraftEntryRequest {
	if tx.Type == finance.CashDisbursement {
		return entry(tx.TransactionDate, ledger.SourceCash, tx.ID, tx.Description, tx.Reference,
			debit(tx.CounterAccountID, tx.Amount, tx.Description),
			credit(tx.CashAccountID, tx.Amount, "Disbursement"),
		)
	}
	return entry(tx.TransactionDate, ledger.SourceCash, tx.ID, tx.Description, tx.Reference,
		debit(tx.CashAccountID, tx.Amount, "Deposit"),
		credit(tx.CounterAccountID, tx.Amount, tx.Description),
	)
}

// PayrollAccounts are the control accounts a payroll run posts to
type PayrollAccounts struct {
	GrossPayExpense    uuid.UUID
	EmployerTaxExpense uuid.UUID
	TaxWithholding     uuid.UUID
	BenefitWithholding uuid.UUID
	NetPayClearing     uuid.UUID
}

// PayrollEntry is the composite entry of an approved run. Employer tax is
// owed alongside the employee withholding, so both credit the tax
// withholding liability. Zero amounts produce no line.
func PayrollEntry(run *finance.PayrollRun, accts PayrollAccounts) ledgerapp.DraftEntryRequest {
	lines := []ledgerapp.LineRequest{debit(accts.GrossPayExpense, run.GrossPay, "Gross pay")}
	if run.EmployerTax.IsPositive() {
		lines = append(lines, debit(accts.EmployerTaxExpense, run.EmployerTax, "Employer tax"))
	}
	if owed := run.TaxWithheld.Add(run.EmployerTax); owed.IsPositive() {
		lines = append(lines, credit(accts.TaxWithholding, owed, "Tax withholding"))
	}
	if run.BenefitsWithheld.IsPositive() {
		lines = append(lines, credit(accts.BenefitWithholding, run.BenefitsWithheld, "Benefit withholding"))
	}
	lines = append(lines, credit(accts.NetPayClearing, run.NetPay(), "Net pay clearing"))
	return entry(run.PayDate, ledger.SourcePayroll, run.ID, "Payroll "+run.Label, run.Label, lines...)
}

// PayrollDisbursementEntry clears net pay to cash
func PayrollDisbursementEntry(run *finance.PayrollRun, netPayClearing, cashAccountID uuid.UUID, date time.Time) ledgerapp.DraftEntryRequest {
	return entry(date, ledger.SourcePayroll, run.ID, "Net pay "+run.Label, run.Label,
		debit(netPayClearing, run.NetPay(), "Net pay clearing"),
		credit(cashAccountID, run.NetPay(), "Net pay disbursed"),
	)
}

// AcquisitionEntry debits the asset account at cost against cash or payables
func AcquisitionEntry(asset *finance.FixedAsset, creditAccountID uuid.UUID) ledgerapp.DraftEntryRequest {
	return entry(asset.AcquisitionDate, ledger.SourceAsset, asset.ID, "Acquisition of "+asset.Code, asset.Code,
		debit(asset.Accounts.AssetAccountID, asset.Cost, asset.Name),
		credit(creditAccountID, asset.Cost, "Asset acquisition"),
	)
}

// DepreciationEntry debits depreciation expense and credits accumulated depreciation
func DepreciationEntry(asset *finance.FixedAsset, amount decimal.Decimal, date time.Time, periodLabel string) ledgerapp.DraftEntryRequest {
	return entry(date, ledger.SourceAsset, asset.ID, fmt.Sprintf("Depreciation %s %s", asset.Code, periodLabel), asset.Code,
		debit(asset.Accounts.DepreciationExpenseID, amount, "Depreciation expense"),
		credit(asset.Accounts.AccumulatedDepreciationID, amount, "Accumulated depreciation"),
	)
}

// DisposalEntry removes the asset at cost, clears accumulated depreciation,
// books proceeds to cash and the difference to the gain/loss account. A
// gain is a credit, a loss a debit.
func DisposalEntry(asset *finance.FixedAsset, proceeds decimal.Decimal, cashAccountID, gainLossAccountID uuid.UUID, date time.Time) ledgerapp.DraftEntryRequest {
	var lines []ledgerapp.LineRequest
	if proceeds.IsPositive() {
		lines = append(lines, debit(cashAccountID, proceeds, "Disposal proceeds"))
	}
	if asset.AccumulatedDepreciation.IsPositive() {
		lines = append(lines, debit(asset.Accounts.AccumulatedDepreciationID, asset.AccumulatedDepreciation, "Accumulated depreciation"))
	}
	lines = append(lines, credit(asset.Accounts.AssetAccountID, asset.Cost, asset.Name))

	switch gain := proceeds.Sub(asset.BookValue()); {
	case gain.IsPositive():
		lines = append(lines, credit(gainLossAccountID, gain, "Gain on disposal"))
	case gain.IsNegative():
		lines = append(lines, debit(gainLossAccountID, gain.Neg(), "Loss on disposal"))
	}
	return entry(date, ledger.SourceAsset, asset.ID, "Disposal of "+asset.Code, asset.Code, lines...)
}

// ReconciliationEntry books the statement difference. A statement above
// book debits cash, below book credits it.
func ReconciliationEntry(rec *finance.BankReconciliation, cashAccountID, adjustmentAccountID uuid.UUID) ledgerapp.DraftEntryRequest {
	diff := rec.Difference
	desc := "Bank reconciliation " + rec.StatementDate.Format("2006-01-02")
	if diff.IsPositive() {
		return entry(rec.StatementDate, ledger.SourceCash, rec.ID, desc, "",
			debit(cashAccountID, diff, "Statement adjustment"),
			credit(adjustmentAccountID, diff, "Reconciliation difference"),
		)
	}
	return entry(rec.StatementDate, ledger.SourceCash, rec.ID, desc, "",
		debit(adjustmentAccountID, diff.Neg(), "Reconciliation difference"),
		credit(cashAccountID, diff.Neg(), "Statement adjustment"),
	)
}
