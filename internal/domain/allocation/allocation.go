package allocation

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventTypeAllocationCompleted is raised after a source entry is allocated
const EventTypeAllocationCompleted = "AllocationCompleted"

// Entry is one target's share and the journal entry generated for it
type Entry struct {
	ID              uuid.UUID
	AllocationID    uuid.UUID
	TargetAccountID uuid.UUID
	Amount          decimal.Decimal
	JournalEntryID  uuid.UUID
	Sequence        int
}

// Allocation records one execution of a rule against a source entry
type Allocation struct {
	shared.TenantAggregateRoot
	RuleID        uuid.UUID
	RuleCode      string
	SourceEntryID uuid.UUID
	SourceAmount  decimal.Decimal
	AllocatedAt   time.Time
	Entries       []Entry
}

// NewAllocation creates an allocation header for a source entry
func NewAllocation(tenantID uuid.UUID, rule *Rule, sourceEntryID uuid.UUID, base decimal.Decimal) *Allocation {
	return &Allocation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		RuleID:              rule.ID,
		RuleCode:            rule.Code,
		SourceEntryID:       sourceEntryID,
		SourceAmount:        base,
		AllocatedAt:         time.Now().UTC(),
	}
}

// AddEntry appends a target share
func (a *Allocation) AddEntry(targetAccountID uuid.UUID, amount decimal.Decimal, journalEntryID uuid.UUID) {
	a.Entries = append(a.Entries, Entry{
		ID:              uuid.New(),
		AllocationID:    a.ID,
		TargetAccountID: targetAccountID,
		Amount:          amount,
		JournalEntryID:  journalEntryID,
		Sequence:        len(a.Entries) + 1,
	})
}

// Total returns the sum of allocated amounts
func (a *Allocation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range a.Entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Complete raises AllocationCompleted
func (a *Allocation) Complete() {
	a.AddDomainEvent(&CompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationCompleted, "Allocation", a.ID, a.TenantID),
		AllocationID:    a.ID,
		SourceEntryID:   a.SourceEntryID,
	})
}

// CompletedEvent is raised when an allocation commits
type CompletedEvent struct {
	shared.BaseDomainEvent
	AllocationID  uuid.UUID `json:"allocation_id"`
	SourceEntryID uuid.UUID `json:"source_entry_id"`
}

// EventType returns the event type name
func (e *CompletedEvent) EventType() string {
	return EventTypeAllocationCompleted
}

// RuleFilter narrows rule listings
type RuleFilter struct {
	Status RuleStatus
}

// RuleRepository persists allocation rules
type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) error
	Save(ctx context.Context, rule *Rule) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Rule, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Rule, error)
	List(ctx context.Context, tenantID uuid.UUID, filter RuleFilter) ([]*Rule, error)
}

// Repository persists allocations with their entries
type Repository interface {
	Create(ctx context.Context, allocation *Allocation) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Allocation, error)
	FindBySourceEntry(ctx context.Context, tenantID, sourceEntryID uuid.UUID) (*Allocation, error)
}
