package posting

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Document lines ====================

// DocumentLineRequest is one charged line of a bill or invoice
type DocumentLineRequest struct {
	AccountID   uuid.UUID       `json:"account_id" binding:"required"`
	Description string          `json:"description" binding:"max=200"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	TaxCode     string          `json:"tax_code" binding:"max=20"`
}

func toDocumentLines(in []DocumentLineRequest) []finance.DocumentLine {
	out := make([]finance.DocumentLine, len(in))
	for i, l := range in {
		out[i] = finance.DocumentLine{
			AccountID:   l.AccountID,
			Description: l.Description,
			Amount:      l.Amount,
			TaxCode:     l.TaxCode,
			TaxAmount:   decimal.Zero,
		}
	}
	return out
}

// PaymentRequest applies money from or to a bank account
type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	BankAccountID uuid.UUID       `json:"bank_account_id" binding:"required"`
	PaidOn        time.Time       `json:"paid_on"`
}

// PaymentResponse is a payment applied to a document
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	BankAccountID  uuid.UUID       `json:"bank_account_id"`
	JournalEntryID uuid.UUID       `json:"journal_entry_id"`
	PaidOn         time.Time       `json:"paid_on"`
}

func toPayments(in []finance.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(in))
	for i, p := range in {
		out[i] = PaymentResponse(p)
	}
	return out
}

// ==================== AP ====================

// CreateBillRequest represents a request to record a vendor bill
type CreateBillRequest struct {
	VendorRef   string                `json:"vendor_ref" binding:"required,max=50"`
	VendorName  string                `json:"vendor_name" binding:"max=200"`
	BillDate    time.Time             `json:"bill_date" binding:"required"`
	DueDate     time.Time             `json:"due_date"`
	APAccountID *uuid.UUID            `json:"ap_account_id"`
	Lines       []DocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// BillResponse is the read model of a bill
type BillResponse struct {
	ID             uuid.UUID              `json:"id"`
	BillNumber     string                 `json:"bill_number,omitempty"`
	VendorRef      string                 `json:"vendor_ref"`
	VendorName     string                 `json:"vendor_name,omitempty"`
	BillDate       time.Time              `json:"bill_date"`
	DueDate        time.Time              `json:"due_date"`
	APAccountID    uuid.UUID              `json:"ap_account_id"`
	Lines          []finance.DocumentLine `json:"lines"`
	Total          decimal.Decimal        `json:"total"`
	PaidAmount     decimal.Decimal        `json:"paid_amount"`
	Outstanding    decimal.Decimal        `json:"outstanding"`
	Status         string                 `json:"status"`
	JournalEntryID *uuid.UUID             `json:"journal_entry_id,omitempty"`
	Payments       []PaymentResponse      `json:"payments"`
	Version        int                    `json:"version"`
}

// ToBillResponse converts a domain bill
func ToBillResponse(b *finance.Bill) BillResponse {
	return BillResponse{
		ID:             b.ID,
		BillNumber:     b.BillNumber,
		VendorRef:      b.VendorRef,
		VendorName:     b.VendorName,
		BillDate:       b.BillDate,
		DueDate:        b.DueDate,
		APAccountID:    b.APAccountID,
		Lines:          b.Lines,
		Total:          b.Total,
		PaidAmount:     b.PaidAmount,
		Outstanding:    b.Outstanding(),
		Status:         string(b.Status),
		JournalEntryID: b.JournalEntryID,
		Payments:       toPayments(b.Payments),
		Version:        b.Version,
	}
}

// ==================== AR ====================

// CreateTaxRuleRequest represents a request to define a tax code
type CreateTaxRuleRequest struct {
	Code             string          `json:"code" binding:"required,max=20"`
	Name             string          `json:"name" binding:"max=100"`
	Rate             decimal.Decimal `json:"rate" binding:"required"`
	PayableAccountID uuid.UUID       `json:"payable_account_id" binding:"required"`
}

// TaxRuleResponse is the read model of a tax rule
type TaxRuleResponse struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Rate             decimal.Decimal `json:"rate"`
	PayableAccountID uuid.UUID       `json:"payable_account_id"`
	IsActive         bool            `json:"is_active"`
}

// ToTaxRuleResponse converts a domain tax rule
func ToTaxRuleResponse(r *finance.TaxRule) TaxRuleResponse {
	return TaxRuleResponse{
		ID:               r.ID,
		Code:             r.Code,
		Name:             r.Name,
		Rate:             r.Rate,
		PayableAccountID: r.PayableAccountID,
		IsActive:         r.IsActive,
	}
}

// CreateInvoiceRequest represents a request to draft a customer invoice
type CreateInvoiceRequest struct {
	CustomerRef  string                `json:"customer_ref" binding:"required,max=50"`
	CustomerName string                `json:"customer_name" binding:"max=200"`
	InvoiceDate  time.Time             `json:"invoice_date" binding:"required"`
	DueDate      time.Time             `json:"due_date"`
	ARAccountID  *uuid.UUID            `json:"ar_account_id"`
	Lines        []DocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// InvoiceResponse is the read model of an invoice
type InvoiceResponse struct {
	ID             uuid.UUID              `json:"id"`
	InvoiceNumber  string                 `json:"invoice_number,omitempty"`
	CustomerRef    string                 `json:"customer_ref"`
	CustomerName   string                 `json:"customer_name,omitempty"`
	InvoiceDate    time.Time              `json:"invoice_date"`
	DueDate        time.Time              `json:"due_date"`
	ARAccountID    uuid.UUID              `json:"ar_account_id"`
	Lines          []finance.DocumentLine `json:"lines"`
	Subtotal       decimal.Decimal        `json:"subtotal"`
	TaxTotal       decimal.Decimal        `json:"tax_total"`
	Total          decimal.Decimal        `json:"total"`
	PaidAmount     decimal.Decimal        `json:"paid_amount"`
	Outstanding    decimal.Decimal        `json:"outstanding"`
	Status         string                 `json:"status"`
	JournalEntryID *uuid.UUID             `json:"journal_entry_id,omitempty"`
	Payments       []PaymentResponse      `json:"payments"`
	Version        int                    `json:"version"`
}

// ToInvoiceResponse converts a domain invoice
func ToInvoiceResponse(inv *finance.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:             inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		CustomerRef:    inv.CustomerRef,
		CustomerName:   inv.CustomerName,
		InvoiceDate:    inv.InvoiceDate,
		DueDate:        inv.DueDate,
		ARAccountID:    inv.ARAccountID,
		Lines:          inv.Lines,
		Subtotal:       inv.Subtotal,
		TaxTotal:       inv.TaxTotal,
		Total:          inv.Total,
		PaidAmount:     inv.PaidAmount,
		Outstanding:    inv.Outstanding(),
		Status:         string(inv.Status),
		JournalEntryID: inv.JournalEntryID,
		Payments:       toPayments(inv.Payments),
		Version:        inv.Version,
	}
}

// ==================== Cash ====================

// CreateBankAccountRequest links a bank account to a GL cash account
type CreateBankAccountRequest struct {
	Name          string    `json:"name" binding:"required,max=100"`
	AccountNumber string    `json:"account_number" binding:"max=50"`
	GLAccountID   uuid.UUID `json:"gl_account_id" binding:"required"`
	Currency      string    `json:"currency" binding:"omitempty,len=3"`
}

// RelinkBankAccountRequest points a bank account at another GL cash account
type RelinkBankAccountRequest struct {
	GLAccountID uuid.UUID `json:"gl_account_id" binding:"required"`
}

// BankAccountResponse is the read model of a bank account
type BankAccountResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	AccountNumber        string          `json:"account_number,omitempty"`
	GLAccountID          uuid.UUID       `json:"gl_account_id"`
	Currency             string          `json:"currency"`
	IsActive             bool            `json:"is_active"`
	LastReconciledAt     *time.Time      `json:"last_reconciled_at,omitempty"`
	LastStatementBalance decimal.Decimal `json:"last_statement_balance"`
}

// ToBankAccountResponse converts a domain bank account
func ToBankAccountResponse(b *finance.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:                   b.ID,
		Name:                 b.Name,
		AccountNumber:        b.AccountNumber,
		GLAccountID:          b.GLAccountID,
		Currency:             b.Currency,
		IsActive:             b.IsActive,
		LastReconciledAt:     b.LastReconciledAt,
		LastStatementBalance: b.LastStatementBalance,
	}
}

// CashTransactionRequest records a deposit or disbursement
type CashTransactionRequest struct {
	BankAccountID    uuid.UUID       `json:"bank_account_id" binding:"required"`
	Type             string          `json:"type" binding:"required,oneof=DEPOSIT DISBURSEMENT deposit disbursement"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	CounterAccountID uuid.UUID       `json:"counter_account_id" binding:"required"`
	TransactionDate  time.Time       `json:"transaction_date" binding:"required"`
	Description      string          `json:"description" binding:"max=500"`
	Reference        string          `json:"reference" binding:"max=100"`
}

// CashTransactionResponse is the read model of a cash transaction
type CashTransactionResponse struct {
	ID               uuid.UUID       `json:"id"`
	BankAccountID    uuid.UUID       `json:"bank_account_id"`
	Type             string          `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	CounterAccountID uuid.UUID       `json:"counter_account_id"`
	CashAccountID    uuid.UUID       `json:"cash_account_id"`
	TransactionDate  time.Time       `json:"transaction_date"`
	Description      string          `json:"description,omitempty"`
	Reference        string          `json:"reference,omitempty"`
	JournalEntryID   *uuid.UUID      `json:"journal_entry_id,omitempty"`
	Reconciled       bool            `json:"reconciled"`
	ReconciliationID *uuid.UUID      `json:"reconciliation_id,omitempty"`
}

// ToCashTransactionResponse converts a domain cash transaction
func ToCashTransactionResponse(t *finance.CashTransaction) CashTransactionResponse {
	return CashTransactionResponse{
		ID:               t.ID,
		BankAccountID:    t.BankAccountID,
		Type:             string(t.Type),
		Amount:           t.Amount,
		CounterAccountID: t.CounterAccountID,
		CashAccountID:    t.CashAccountID,
		TransactionDate:  t.TransactionDate,
		Description:      t.Description,
		Reference:        t.Reference,
		JournalEntryID:   t.JournalEntryID,
		Reconciled:       t.Reconciled,
		ReconciliationID: t.ReconciliationID,
	}
}

// ReconcileRequest reconciles a bank statement against cleared transactions
type ReconcileRequest struct {
	BankAccountID    uuid.UUID       `json:"bank_account_id" binding:"required"`
	StatementDate    time.Time       `json:"statement_date" binding:"required"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	TransactionIDs   []uuid.UUID     `json:"transaction_ids"`
}

// ReconciliationResponse is the read model of a bank reconciliation
type ReconciliationResponse struct {
	ID                uuid.UUID       `json:"id"`
	BankAccountID     uuid.UUID       `json:"bank_account_id"`
	StatementDate     time.Time       `json:"statement_date"`
	StatementBalance  decimal.Decimal `json:"statement_balance"`
	BookBalance       decimal.Decimal `json:"book_balance"`
	Difference        decimal.Decimal `json:"difference"`
	ClearedIDs        []uuid.UUID     `json:"cleared_ids"`
	AdjustmentEntryID *uuid.UUID      `json:"adjustment_entry_id,omitempty"`
}

// ToReconciliationResponse converts a domain reconciliation
func ToReconciliationResponse(r *finance.BankReconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		ID:                r.ID,
		BankAccountID:     r.BankAccountID,
		StatementDate:     r.StatementDate,
		StatementBalance:  r.StatementBalance,
		BookBalance:       r.BookBalance,
		Difference:        r.Difference,
		ClearedIDs:        r.ClearedIDs,
		AdjustmentEntryID: r.AdjustmentEntryID,
	}
}

// ==================== Payroll ====================

// CreatePayrollRunRequest represents a request to draft a payroll run
type CreatePayrollRunRequest struct {
	Label            string          `json:"label" binding:"required,max=50"`
	PayDate          time.Time       `json:"pay_date" binding:"required"`
	GrossPay         decimal.Decimal `json:"gross_pay" binding:"required"`
	EmployerTax      decimal.Decimal `json:"employer_tax"`
	TaxWithheld      decimal.Decimal `json:"tax_withheld"`
	BenefitsWithheld decimal.Decimal `json:"benefits_withheld"`
}

// DisbursePayrollRequest pays net pay out of a bank account
type DisbursePayrollRequest struct {
	BankAccountID uuid.UUID `json:"bank_account_id" binding:"required"`
	Date          time.Time `json:"date"`
}

// PayrollRunResponse is the read model of a payroll run
type PayrollRunResponse struct {
	ID                  uuid.UUID       `json:"id"`
	Label               string          `json:"label"`
	PayDate             time.Time       `json:"pay_date"`
	GrossPay            decimal.Decimal `json:"gross_pay"`
	EmployerTax         decimal.Decimal `json:"employer_tax"`
	TaxWithheld         decimal.Decimal `json:"tax_withheld"`
	BenefitsWithheld    decimal.Decimal `json:"benefits_withheld"`
	NetPay              decimal.Decimal `json:"net_pay"`
	Status              string          `json:"status"`
	JournalEntryID      *uuid.UUID      `json:"journal_entry_id,omitempty"`
	DisbursementEntryID *uuid.UUID      `json:"disbursement_entry_id,omitempty"`
}

// ToPayrollRunResponse converts a domain payroll run
func ToPayrollRunResponse(r *finance.PayrollRun) PayrollRunResponse {
	return PayrollRunResponse{
		ID:                  r.ID,
		Label:               r.Label,
		PayDate:             r.PayDate,
		GrossPay:            r.GrossPay,
		EmployerTax:         r.EmployerTax,
		TaxWithheld:         r.TaxWithheld,
		BenefitsWithheld:    r.BenefitsWithheld,
		NetPay:              r.NetPay(),
		Status:              string(r.Status),
		JournalEntryID:      r.JournalEntryID,
		DisbursementEntryID: r.DisbursementEntryID,
	}
}

// ==================== Assets ====================

// AcquireAssetRequest registers an asset and posts its acquisition.
// CreditAccountID is the cash or payables account the cost is credited to.
// Depreciation accounts default to the configured control accounts.
type AcquireAssetRequest struct {
	Code                      string          `json:"code" binding:"required,max=50"`
	Name                      string          `json:"name" binding:"required,max=200"`
	AcquisitionDate           time.Time       `json:"acquisition_date" binding:"required"`
	Cost                      decimal.Decimal `json:"cost" binding:"required"`
	SalvageValue              decimal.Decimal `json:"salvage_value"`
	UsefulLifePeriods         int             `json:"useful_life_periods" binding:"required,min=1"`
	Method                    string          `json:"method" binding:"required"`
	AssetAccountID            uuid.UUID       `json:"asset_account_id" binding:"required"`
	AccumulatedDepreciationID *uuid.UUID      `json:"accumulated_depreciation_id"`
	DepreciationExpenseID     *uuid.UUID      `json:"depreciation_expense_id"`
	CreditAccountID           uuid.UUID       `json:"credit_account_id" binding:"required"`
}

// DisposeAssetRequest disposes of an asset for proceeds received into a cash account
type DisposeAssetRequest struct {
	Proceeds      decimal.Decimal `json:"proceeds"`
	CashAccountID uuid.UUID       `json:"cash_account_id" binding:"required"`
	Date          time.Time       `json:"date" binding:"required"`
}

// AssetResponse is the read model of a fixed asset
type AssetResponse struct {
	ID                      uuid.UUID             `json:"id"`
	Code                    string                `json:"code"`
	Name                    string                `json:"name"`
	AcquisitionDate         time.Time             `json:"acquisition_date"`
	Cost                    decimal.Decimal       `json:"cost"`
	SalvageValue            decimal.Decimal       `json:"salvage_value"`
	UsefulLifePeriods       int                   `json:"useful_life_periods"`
	Method                  string                `json:"method"`
	Accounts                finance.AssetAccounts `json:"accounts"`
	AccumulatedDepreciation decimal.Decimal       `json:"accumulated_depreciation"`
	BookValue               decimal.Decimal       `json:"book_value"`
	PeriodsDepreciated      int                   `json:"periods_depreciated"`
	Status                  string                `json:"status"`
	AcquisitionEntryID      *uuid.UUID            `json:"acquisition_entry_id,omitempty"`
	DisposalEntryID         *uuid.UUID            `json:"disposal_entry_id,omitempty"`
}

// ToAssetResponse converts a domain asset
func ToAssetResponse(a *finance.FixedAsset) AssetResponse {
	return AssetResponse{
		ID:                      a.ID,
		Code:                    a.Code,
		Name:                    a.Name,
		AcquisitionDate:         a.AcquisitionDate,
		Cost:                    a.Cost,
		SalvageValue:            a.SalvageValue,
		UsefulLifePeriods:       a.UsefulLifePeriods,
		Method:                  string(a.Method),
		Accounts:                a.Accounts,
		AccumulatedDepreciation: a.AccumulatedDepreciation,
		BookValue:               a.BookValue(),
		PeriodsDepreciated:      a.PeriodsDepreciated,
		Status:                  string(a.Status),
		AcquisitionEntryID:      a.AcquisitionEntryID,
		DisposalEntryID:         a.DisposalEntryID,
	}
}

// DepreciationResult summarizes one depreciation run
type DepreciationResult struct {
	PeriodID    uuid.UUID       `json:"period_id"`
	Depreciated int             `json:"depreciated"`
	Skipped     int             `json:"skipped"`
	Total       decimal.Decimal `json:"total"`
}
