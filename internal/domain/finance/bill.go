package finance

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillStatus represents the status of a vendor bill
type BillStatus string

const (
	BillStatusDraft    BillStatus = "DRAFT"
	BillStatusApproved BillStatus = "APPROVED"
	BillStatusPartial  BillStatus = "PARTIAL"
	BillStatusPaid     BillStatus = "PAID"
	BillStatusVoid     BillStatus = "VOID"
)

// CanApplyPayment returns true if payments can be applied in this status
func (s BillStatus) CanApplyPayment() bool {
	return s == BillStatusApproved || s == BillStatusPartial
}

// DocumentLine is an amount charged to a GL account on a subledger document
type DocumentLine struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	TaxCode     string          `json:"tax_code,omitempty"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

// Payment records money applied against a bill or invoice
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	BankAccountID  uuid.UUID       `json:"bank_account_id"`
	JournalEntryID uuid.UUID       `json:"journal_entry_id"`
	PaidOn         time.Time       `json:"paid_on"`
}

func validateLines(lines []DocumentLine) (decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, shared.NewDomainError("INVALID_INPUT", "Document needs at least one line")
	}
	total := decimal.Zero
	for i, l := range lines {
		if l.AccountID == uuid.Nil || !l.Amount.IsPositive() {
			return decimal.Zero, ledger.ErrInvalidLine.WithLines(i + 1)
		}
		total = total.Add(l.Amount)
	}
	return total, nil
}

// Bill is a vendor bill tracked by accounts payable
type Bill struct {
	shared.TenantAggregateRoot
	BillNumber     string
	VendorRef      string
	VendorName     string
	BillDate       time.Time
	DueDate        time.Time
	APAccountID    uuid.UUID
	Lines          []DocumentLine
	Total          decimal.Decimal
	PaidAmount     decimal.Decimal
	Status         BillStatus
	JournalEntryID *uuid.UUID
	Payments       []Payment
	ApprovedAt     *time.Time
	PaidAt         *time.Time
}

// NewBill creates a draft bill
func NewBill(tenantID uuid.UUID, vendorRef, vendorName string, billDate, dueDate time.Time, apAccountID uuid.UUID, lines []DocumentLine) (*Bill, error) {
	if strings.TrimSpace(vendorRef) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Vendor reference is required")
	}
	if apAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "AP account is required")
	}
	total, err := validateLines(lines)
	if err != nil {
		return nil, err
	}
	billDate = ledger.CivilDate(billDate)
	if dueDate.IsZero() {
		dueDate = billDate
	}
	return &Bill{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		VendorRef:           vendorRef,
		VendorName:          vendorName,
		BillDate:            billDate,
		DueDate:             ledger.CivilDate(dueDate),
		APAccountID:         apAccountID,
		Lines:               lines,
		Total:               total,
		PaidAmount:          decimal.Zero,
		Status:              BillStatusDraft,
	}, nil
}

// Outstanding returns the unpaid amount
func (b *Bill) Outstanding() decimal.Decimal {
	return b.Total.Sub(b.PaidAmount)
}

// Approve records the posted bill entry
func (b *Bill) Approve(number string, entryID uuid.UUID) error {
	if b.Status != BillStatusDraft {
		return ledger.ErrWrongStatus.WithDetail("bill_id", b.ID.String()).WithDetail("status", string(b.Status))
	}
	now := time.Now().UTC()
	b.BillNumber = number
	b.Status = BillStatusApproved
	b.JournalEntryID = &entryID
	b.ApprovedAt = &now
	b.Touch()
	return nil
}

// CheckPayment validates a payment before its entry is posted
func (b *Bill) CheckPayment(amount decimal.Decimal) error {
	if !b.Status.CanApplyPayment() {
		return ledger.ErrWrongStatus.WithDetail("bill_id", b.ID.String()).WithDetail("status", string(b.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_INPUT", "Payment amount must be positive")
	}
	if amount.GreaterThan(b.Outstanding()) {
		return shared.NewDomainErrorf("INVALID_INPUT", "Payment %s exceeds outstanding %s", amount, b.Outstanding())
	}
	return nil
}

// ApplyPayment updates paid_amount once the payment entry has posted
func (b *Bill) ApplyPayment(amount decimal.Decimal, bankAccountID, entryID uuid.UUID, paidOn time.Time) error {
	if err := b.CheckPayment(amount); err != nil {
		return err
	}
	b.Payments = append(b.Payments, Payment{
		ID:             uuid.New(),
		Amount:         amount,
		BankAccountID:  bankAccountID,
		JournalEntryID: entryID,
		PaidOn:         ledger.CivilDate(paidOn),
	})
	b.PaidAmount = b.PaidAmount.Add(amount)
	if b.Outstanding().IsZero() {
		now := time.Now().UTC()
		b.Status = BillStatusPaid
		b.PaidAt = &now
	} else {
		b.Status = BillStatusPartial
	}
	b.Touch()
	return nil
}

// Void cancels a draft bill
func (b *Bill) Void() error {
	if b.Status != BillStatusDraft {
		return ledger.ErrWrongStatus.WithDetail("bill_id", b.ID.String())
	}
	b.Status = BillStatusVoid
	b.Touch()
	return nil
}
