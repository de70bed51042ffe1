package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeEntryPosted   = "EntryPosted"
	EventTypeEntryReversed = "EntryReversed"
	EventTypePeriodClosed  = "PeriodClosed"
)

// EntryPostedEvent is raised when a journal entry posts
type EntryPostedEvent struct {
	shared.BaseDomainEvent
	EntryID         uuid.UUID                     `json:"entry_id"`
	EntryNumber     string                        `json:"entry_number"`
	SourceModule    SourceModule                  `json:"source_module"`
	EntryDate       time.Time                     `json:"date"`
	DebitsByAccount map[uuid.UUID]decimal.Decimal `json:"debits_by_account"`
}

// EventType returns the event type name
func (e *EntryPostedEvent) EventType() string {
	return EventTypeEntryPosted
}

// NewEntryPostedEvent creates an EntryPostedEvent
func NewEntryPostedEvent(entry *JournalEntry) *EntryPostedEvent {
	return &EntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntryPosted, "JournalEntry", entry.ID, entry.TenantID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		SourceModule:    entry.SourceModule,
		EntryDate:       entry.EntryDate,
		DebitsByAccount: entry.DebitsByAccount(),
	}
}

// EntryReversedEvent is raised when a posted entry is reversed
type EntryReversedEvent struct {
	shared.BaseDomainEvent
	OriginalID uuid.UUID `json:"original_id"`
	ReversalID uuid.UUID `json:"reversal_id"`
}

// EventType returns the event type name
func (e *EntryReversedEvent) EventType() string {
	return EventTypeEntryReversed
}

// NewEntryReversedEvent creates an EntryReversedEvent
func NewEntryReversedEvent(original *JournalEntry, reversalID uuid.UUID) *EntryReversedEvent {
	return &EntryReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntryReversed, "JournalEntry", original.ID, original.TenantID),
		OriginalID:      original.ID,
		ReversalID:      reversalID,
	}
}

// PeriodClosedEvent is raised when a period is locked
type PeriodClosedEvent struct {
	shared.BaseDomainEvent
	PeriodID       uuid.UUID  `json:"period_id"`
	ClosingEntryID *uuid.UUID `json:"closing_entry_id,omitempty"`
}

// EventType returns the event type name
func (e *PeriodClosedEvent) EventType() string {
	return EventTypePeriodClosed
}

// NewPeriodClosedEvent creates a PeriodClosedEvent
func NewPeriodClosedEvent(p *AccountingPeriod) *PeriodClosedEvent {
	return &PeriodClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePeriodClosed, "AccountingPeriod", p.ID, p.TenantID),
		PeriodID:        p.ID,
		ClosingEntryID:  p.ClosingEntryID,
	}
}
