package event

import (
	"github.com/erp/ledger/internal/domain/allocation"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
)

// RegisterAllEvents registers every event the accounting core raises.
// The OutboxProcessor can only deliver registered types.
func RegisterAllEvents(serializer *EventSerializer) {
	// Journal
	serializer.Register(ledger.EventTypeEntryPosted, func() shared.DomainEvent { return &ledger.EntryPostedEvent{} })
	serializer.Register(ledger.EventTypeEntryReversed, func() shared.DomainEvent { return &ledger.EntryReversedEvent{} })

	// Period close
	serializer.Register(ledger.EventTypePeriodClosed, func() shared.DomainEvent { return &ledger.PeriodClosedEvent{} })

	// Allocation
	serializer.Register(allocation.EventTypeAllocationCompleted, func() shared.DomainEvent { return &allocation.CompletedEvent{} })
}

// NewLedgerSerializer returns a serializer with all ledger events registered
func NewLedgerSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterAllEvents(s)
	return s
}
