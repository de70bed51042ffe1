package ledger

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// PeriodType classifies the length of an accounting period
type PeriodType string

const (
	PeriodTypeMonth   PeriodType = "MONTH"
	PeriodTypeQuarter PeriodType = "QUARTER"
	PeriodTypeYear    PeriodType = "YEAR"
	PeriodTypeCustom  PeriodType = "CUSTOM"
)

// IsValid checks if the period type is known
func (t PeriodType) IsValid() bool {
	switch t {
	case PeriodTypeMonth, PeriodTypeQuarter, PeriodTypeYear, PeriodTypeCustom:
		return true
	}
	return false
}

// PeriodStatus is the close state of a period
type PeriodStatus string

const (
	PeriodStatusOpen    PeriodStatus = "OPEN"
	PeriodStatusClosing PeriodStatus = "CLOSING"
	PeriodStatusClosed  PeriodStatus = "CLOSED"
)

// AccountingPeriod is a date range that accepts postings while open
type AccountingPeriod struct {
	shared.TenantAggregateRoot
	Label          string
	PeriodType     PeriodType
	StartDate      time.Time
	EndDate        time.Time
	Status         PeriodStatus
	ClosedAt       *time.Time
	ClosedBy       *uuid.UUID
	ClosingEntryID *uuid.UUID
}

// NewAccountingPeriod creates an open period over [start, end]
func NewAccountingPeriod(tenantID uuid.UUID, label string, periodType PeriodType, start, end time.Time) (*AccountingPeriod, error) {
	if strings.TrimSpace(label) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Period label cannot be empty")
	}
	if !periodType.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_INPUT", "Unknown period type %q", periodType)
	}
	start, end = CivilDate(start), CivilDate(end)
	if end.Before(start) {
		return nil, ErrInvalidPeriod
	}
	return &AccountingPeriod{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Label:               strings.TrimSpace(label),
		PeriodType:          periodType,
		StartDate:           start,
		EndDate:             end,
		Status:              PeriodStatusOpen,
	}, nil
}

// Contains reports whether date falls within the period, both ends inclusive
func (p *AccountingPeriod) Contains(date time.Time) bool {
	d := CivilDate(date)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// Overlaps reports whether [start, end] intersects the period
func (p *AccountingPeriod) Overlaps(start, end time.Time) bool {
	return !CivilDate(start).After(p.EndDate) && !CivilDate(end).Before(p.StartDate)
}

// CheckPostable returns nil if an entry dated in this period may be posted.
// Close-workflow postings are accepted while the period is closing.
func (p *AccountingPeriod) CheckPostable(closeScope bool) error {
	switch p.Status {
	case PeriodStatusOpen:
		return nil
	case PeriodStatusClosing:
		if closeScope {
			return nil
		}
		return ErrPeriodClosing.WithDetail("period_id", p.ID.String())
	default:
		return ErrClosedPeriod.WithDetail("period_id", p.ID.String())
	}
}

// BeginClose moves an open period to closing
func (p *AccountingPeriod) BeginClose() error {
	if p.Status != PeriodStatusOpen {
		return ErrWrongStatus.
			WithDetail("period_id", p.ID.String()).
			WithDetail("status", string(p.Status))
	}
	p.Status = PeriodStatusClosing
	p.Touch()
	return nil
}

// Close locks the period. closingEntryID is nil when there was nothing to close.
func (p *AccountingPeriod) Close(actor uuid.UUID, closingEntryID *uuid.UUID) error {
	if p.Status != PeriodStatusClosing {
		return ErrWrongStatus.
			WithDetail("period_id", p.ID.String()).
			WithDetail("status", string(p.Status))
	}
	now := time.Now().UTC()
	p.Status = PeriodStatusClosed
	p.ClosedAt = &now
	p.ClosedBy = actorPtr(actor)
	p.ClosingEntryID = closingEntryID
	p.Touch()
	p.AddDomainEvent(NewPeriodClosedEvent(p))
	return nil
}
