package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/allocation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationRuleModel is the persistence model for allocation rules.
// Targets are stored as an ordered JSON array.
type AllocationRuleModel struct {
	TenantAggregateModel
	Code            string                `gorm:"type:varchar(50);not null;index"`
	Name            string                `gorm:"type:varchar(200)"`
	Method          allocation.Method     `gorm:"type:varchar(20);not null"`
	SourceAccountID *uuid.UUID            `gorm:"type:uuid"`
	EffectiveFrom   time.Time             `gorm:"type:date;not null"`
	EffectiveTo     *time.Time            `gorm:"type:date"`
	Priority        int                   `gorm:"not null;default:0"`
	Status          allocation.RuleStatus `gorm:"type:varchar(20);not null;index"`
	Targets         []allocation.Target   `gorm:"serializer:json;type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (AllocationRuleModel) TableName() string {
	return "allocation_rules"
}

// ToDomain converts the persistence model to a domain Rule
func (m *AllocationRuleModel) ToDomain() *allocation.Rule {
	r := &allocation.Rule{
		Code:            m.Code,
		Name:            m.Name,
		Method:          m.Method,
		SourceAccountID: m.SourceAccountID,
		EffectiveFrom:   m.EffectiveFrom.UTC(),
		Priority:        m.Priority,
		Status:          m.Status,
		Targets:         m.Targets,
	}
	if m.EffectiveTo != nil {
		to := m.EffectiveTo.UTC()
		r.EffectiveTo = &to
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain Rule
func (m *AllocationRuleModel) FromDomain(r *allocation.Rule) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Code = r.Code
	m.Name = r.Name
	m.Method = r.Method
	m.SourceAccountID = r.SourceAccountID
	m.EffectiveFrom = r.EffectiveFrom
	m.EffectiveTo = r.EffectiveTo
	m.Priority = r.Priority
	m.Status = r.Status
	m.Targets = r.Targets
}

// AllocationModel is the persistence model for allocation runs
type AllocationModel struct {
	TenantAggregateModel
	RuleID        uuid.UUID              `gorm:"type:uuid;not null;index"`
	RuleCode      string                 `gorm:"type:varchar(50);not null"`
	SourceEntryID uuid.UUID              `gorm:"type:uuid;not null;index"`
	SourceAmount  decimal.Decimal        `gorm:"type:decimal(24,6);not null"`
	AllocatedAt   time.Time              `gorm:"not null"`
	Entries       []AllocationEntryModel `gorm:"foreignKey:AllocationID"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// AllocationEntryModel is one target share of an allocation
type AllocationEntryModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AllocationID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	TargetAccountID uuid.UUID       `gorm:"type:uuid;not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(24,6);not null"`
	JournalEntryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Sequence        int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationEntryModel) TableName() string {
	return "allocation_entries"
}

// ToDomain converts the persistence model to a domain Allocation
func (m *AllocationModel) ToDomain() *allocation.Allocation {
	a := &allocation.Allocation{
		RuleID:        m.RuleID,
		RuleCode:      m.RuleCode,
		SourceEntryID: m.SourceEntryID,
		SourceAmount:  m.SourceAmount,
		AllocatedAt:   m.AllocatedAt,
		Entries:       make([]allocation.Entry, len(m.Entries)),
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	for i, e := range m.Entries {
		a.Entries[i] = allocation.Entry{
			ID:              e.ID,
			AllocationID:    e.AllocationID,
			TargetAccountID: e.TargetAccountID,
			Amount:          e.Amount,
			JournalEntryID:  e.JournalEntryID,
			Sequence:        e.Sequence,
		}
	}
	return a
}

// FromDomain populates the persistence model from a domain Allocation
func (m *AllocationModel) FromDomain(a *allocation.Allocation) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.RuleID = a.RuleID
	m.RuleCode = a.RuleCode
	m.SourceEntryID = a.SourceEntryID
	m.SourceAmount = a.SourceAmount
	m.AllocatedAt = a.AllocatedAt
	m.Entries = make([]AllocationEntryModel, len(a.Entries))
	for i, e := range a.Entries {
		m.Entries[i] = AllocationEntryModel{
			ID:              e.ID,
			AllocationID:    a.ID,
			TargetAccountID: e.TargetAccountID,
			Amount:          e.Amount,
			JournalEntryID:  e.JournalEntryID,
			Sequence:        e.Sequence,
		}
	}
}
