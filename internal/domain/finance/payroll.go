package finance

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayrollStatus represents the status of a payroll run
type PayrollStatus string

const (
	PayrollStatusDraft    PayrollStatus = "DRAFT"
	PayrollStatusApproved PayrollStatus = "APPROVED"
	PayrollStatusPaid     PayrollStatus = "PAID"
)

// PayrollRun is the aggregate result of one pay cycle
type PayrollRun struct {
	shared.TenantAggregateRoot
	Label               string
	PayDate             time.Time
	GrossPay            decimal.Decimal
	EmployerTax         decimal.Decimal
	TaxWithheld         decimal.Decimal
	BenefitsWithheld    decimal.Decimal
	Status              PayrollStatus
	JournalEntryID      *uuid.UUID
	DisbursementEntryID *uuid.UUID
	ApprovedAt          *time.Time
}

// NewPayrollRun creates a draft payroll run
func NewPayrollRun(tenantID uuid.UUID, label string, payDate time.Time, gross, employerTax, taxWithheld, benefitsWithheld decimal.Decimal) (*PayrollRun, error) {
	if strings.TrimSpace(label) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Payroll label is required")
	}
	if !gross.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Gross pay must be positive")
	}
	for _, amt := range []decimal.Decimal{employerTax, taxWithheld, benefitsWithheld} {
		if amt.IsNegative() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Payroll amounts cannot be negative")
		}
	}
	run := &PayrollRun{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Label:               strings.TrimSpace(label),
		PayDate:             ledger.CivilDate(payDate),
		GrossPay:            gross,
		EmployerTax:         employerTax,
		TaxWithheld:         taxWithheld,
		BenefitsWithheld:    benefitsWithheld,
		Status:              PayrollStatusDraft,
	}
	if !run.NetPay().IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Withholdings exceed gross pay")
	}
	return run, nil
}

// NetPay is gross pay minus employee withholdings
func (r *PayrollRun) NetPay() decimal.Decimal {
	return r.GrossPay.Sub(r.TaxWithheld).Sub(r.BenefitsWithheld)
}

// Approve records the composite payroll entry
func (r *PayrollRun) Approve(entryID uuid.UUID) error {
	if r.Status != PayrollStatusDraft {
		return ledger.ErrWrongStatus.WithDetail("payroll_run_id", r.ID.String())
	}
	now := time.Now().UTC()
	r.Status = PayrollStatusApproved
	r.JournalEntryID = &entryID
	r.ApprovedAt = &now
	r.Touch()
	return nil
}

// MarkDisbursed records the entry that clears net pay to cash
func (r *PayrollRun) MarkDisbursed(entryID uuid.UUID) error {
	if r.Status != PayrollStatusApproved {
		return ledger.ErrWrongStatus.WithDetail("payroll_run_id", r.ID.String())
	}
	r.Status = PayrollStatusPaid
	r.DisbursementEntryID = &entryID
	r.Touch()
	return nil
}
