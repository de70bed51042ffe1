package finance

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of a customer invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusPartial InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusVoid    InvoiceStatus = "VOID"
)

// CanReceivePayment returns true if payments can be applied in this status
func (s InvoiceStatus) CanReceivePayment() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusPartial
}

// Invoice is a customer invoice tracked by accounts receivable
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber  string
	CustomerRef    string
	CustomerName   string
	InvoiceDate    time.Time
	DueDate        time.Time
	ARAccountID    uuid.UUID
	Lines          []DocumentLine
	Subtotal       decimal.Decimal
	TaxTotal       decimal.Decimal
	Total          decimal.Decimal
	PaidAmount     decimal.Decimal
	Status         InvoiceStatus
	JournalEntryID *uuid.UUID
	Payments       []Payment
	SentAt         *time.Time
	PaidAt         *time.Time
}

// NewInvoice creates a draft invoice. Tax amounts are filled in by ApplyTax.
func NewInvoice(tenantID uuid.UUID, customerRef, customerName string, invoiceDate, dueDate time.Time, arAccountID uuid.UUID, lines []DocumentLine) (*Invoice, error) {
	if strings.TrimSpace(customerRef) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer reference is required")
	}
	if arAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "AR account is required")
	}
	subtotal, err := validateLines(lines)
	if err != nil {
		return nil, err
	}
	invoiceDate = ledger.CivilDate(invoiceDate)
	if dueDate.IsZero() {
		dueDate = invoiceDate
	}
	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CustomerRef:         customerRef,
		CustomerName:        customerName,
		InvoiceDate:         invoiceDate,
		DueDate:             ledger.CivilDate(dueDate),
		ARAccountID:         arAccountID,
		Lines:               lines,
		Subtotal:            subtotal,
		PaidAmount:          decimal.Zero,
		Status:              InvoiceStatusDraft,
	}
	inv.recompute()
	return inv, nil
}

func (inv *Invoice) recompute() {
	inv.TaxTotal = decimal.Zero
	for _, l := range inv.Lines {
		inv.TaxTotal = inv.TaxTotal.Add(l.TaxAmount)
	}
	inv.Total = inv.Subtotal.Add(inv.TaxTotal)
}

// ApplyTax sets the tax amount of line i
func (inv *Invoice) ApplyTax(i int, amount decimal.Decimal) {
	inv.Lines[i].TaxAmount = amount
	inv.recompute()
}

// Outstanding returns the unpaid amount
func (inv *Invoice) Outstanding() decimal.Decimal {
	return inv.Total.Sub(inv.PaidAmount)
}

// MarkSent records the posted invoice entry
func (inv *Invoice) MarkSent(number string, entryID uuid.UUID) error {
	if inv.Status != InvoiceStatusDraft {
		return ledger.ErrWrongStatus.WithDetail("invoice_id", inv.ID.String()).WithDetail("status", string(inv.Status))
	}
	now := time.Now().UTC()
	inv.InvoiceNumber = number
	inv.Status = InvoiceStatusSent
	inv.JournalEntryID = &entryID
	inv.SentAt = &now
	inv.Touch()
	return nil
}

// CheckPayment validates a customer payment before its entry is posted
func (inv *Invoice) CheckPayment(amount decimal.Decimal) error {
	if !inv.Status.CanReceivePayment() {
		return ledger.ErrWrongStatus.WithDetail("invoice_id", inv.ID.String()).WithDetail("status", string(inv.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_INPUT", "Payment amount must be positive")
	}
	if amount.GreaterThan(inv.Outstanding()) {
		return shared.NewDomainErrorf("INVALID_INPUT", "Payment %s exceeds outstanding %s", amount, inv.Outstanding())
	}
	return nil
}

// ApplyPayment updates paid_amount once the receipt entry has posted
func (inv *Invoice) ApplyPayment(amount decimal.Decimal, bankAccountID, entryID uuid.UUID, paidOn time.Time) error {
	if err := inv.CheckPayment(amount); err != nil {
		return err
	}
	inv.Payments = append(inv.Payments, Payment{
		ID:             uuid.New(),
		Amount:         amount,
		BankAccountID:  bankAccountID,
		JournalEntryID: entryID,
		PaidOn:         ledger.CivilDate(paidOn),
	})
	inv.PaidAmount = inv.PaidAmount.Add(amount)
	if inv.Outstanding().IsZero() {
		now := time.Now().UTC()
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
	} else {
		inv.Status = InvoiceStatusPartial
	}
	inv.Touch()
	return nil
}

// Void cancels a draft invoice
func (inv *Invoice) Void() error {
	if inv.Status != InvoiceStatusDraft {
		return ledger.ErrWrongStatus.WithDetail("invoice_id", inv.ID.String())
	}
	inv.Status = InvoiceStatusVoid
	inv.Touch()
	return nil
}
