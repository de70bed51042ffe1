package allocation

import (
	"time"

	"github.com/erp/ledger/internal/domain/allocation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Rule DTOs ====================

// TargetRequest is one destination of a rule
type TargetRequest struct {
	AccountID   uuid.UUID       `json:"account_id" binding:"required"`
	Percentage  decimal.Decimal `json:"percentage"`
	FixedAmount decimal.Decimal `json:"fixed_amount"`
	Weight      decimal.Decimal `json:"weight"`
	Description string          `json:"description"`
}

// CreateRuleRequest represents a request to create an allocation rule
type CreateRuleRequest struct {
	Code            string          `json:"code" binding:"required,max=50"`
	Name            string          `json:"name" binding:"required,max=200"`
	Method          string          `json:"method" binding:"required"`
	SourceAccountID *uuid.UUID      `json:"source_account_id"`
	EffectiveFrom   time.Time       `json:"effective_from" binding:"required"`
	EffectiveTo     *time.Time      `json:"effective_to"`
	Priority        int             `json:"priority"`
	Targets         []TargetRequest `json:"targets" binding:"required,min=1,dive"`
}

// SetRuleStatusRequest activates or deactivates a rule
type SetRuleStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE INACTIVE active inactive"`
}

// RuleListFilter narrows rule listings
type RuleListFilter struct {
	Status string `form:"status"`
}

// TargetResponse is the read model of a rule target
type TargetResponse struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Percentage  decimal.Decimal `json:"percentage"`
	FixedAmount decimal.Decimal `json:"fixed_amount"`
	Weight      decimal.Decimal `json:"weight"`
	Description string          `json:"description,omitempty"`
}

// RuleResponse is the read model of an allocation rule
type RuleResponse struct {
	ID              uuid.UUID        `json:"id"`
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	Method          string           `json:"method"`
	SourceAccountID *uuid.UUID       `json:"source_account_id,omitempty"`
	EffectiveFrom   time.Time        `json:"effective_from"`
	EffectiveTo     *time.Time       `json:"effective_to,omitempty"`
	Priority        int              `json:"priority"`
	Status          string           `json:"status"`
	Targets         []TargetResponse `json:"targets"`
	Version         int              `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ToRuleResponse converts a domain rule
func ToRuleResponse(r *allocation.Rule) RuleResponse {
	targets := make([]TargetResponse, len(r.Targets))
	for i, t := range r.Targets {
		targets[i] = TargetResponse(t)
	}
	return RuleResponse{
		ID:              r.ID,
		Code:            r.Code,
		Name:            r.Name,
		Method:          string(r.Method),
		SourceAccountID: r.SourceAccountID,
		EffectiveFrom:   r.EffectiveFrom,
		EffectiveTo:     r.EffectiveTo,
		Priority:        r.Priority,
		Status:          string(r.Status),
		Targets:         targets,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
	}
}

// ==================== Allocation DTOs ====================

// EntryResponse is one allocated share
type EntryResponse struct {
	Sequence        int             `json:"sequence"`
	TargetAccountID uuid.UUID       `json:"target_account_id"`
	Amount          decimal.Decimal `json:"amount"`
	JournalEntryID  uuid.UUID       `json:"journal_entry_id"`
}

// AllocationResponse is the read model of an allocation
type AllocationResponse struct {
	ID            uuid.UUID       `json:"id"`
	RuleID        uuid.UUID       `json:"rule_id"`
	RuleCode      string          `json:"rule_code"`
	SourceEntryID uuid.UUID       `json:"source_entry_id"`
	SourceAmount  decimal.Decimal `json:"source_amount"`
	AllocatedAt   time.Time       `json:"allocated_at"`
	Entries       []EntryResponse `json:"entries"`
}

// ToAllocationResponse converts a domain allocation
func ToAllocationResponse(a *allocation.Allocation) AllocationResponse {
	entries := make([]EntryResponse, len(a.Entries))
	for i, e := range a.Entries {
		entries[i] = EntryResponse{
			Sequence:        e.Sequence,
			TargetAccountID: e.TargetAccountID,
			Amount:          e.Amount,
			JournalEntryID:  e.JournalEntryID,
		}
	}
	return AllocationResponse{
		ID:            a.ID,
		RuleID:        a.RuleID,
		RuleCode:      a.RuleCode,
		SourceEntryID: a.SourceEntryID,
		SourceAmount:  a.SourceAmount,
		AllocatedAt:   a.AllocatedAt,
		Entries:       entries,
	}
}

// Outcome classifies one processing attempt
type Outcome string

const (
	OutcomeAllocated Outcome = "allocated"
	OutcomeExisting  Outcome = "existing"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeNoRule    Outcome = "no_rule"
	OutcomeFailed    Outcome = "failed"
)

// ProcessResult reports what happened to a source entry
type ProcessResult struct {
	SourceEntryID uuid.UUID           `json:"source_entry_id"`
	Outcome       Outcome             `json:"outcome"`
	Allocation    *AllocationResponse `json:"allocation,omitempty"`
}

// PeriodResult summarizes a ProcessPeriod run
type PeriodResult struct {
	Processed int `json:"processed"`
	Allocated int `json:"allocated"`
	Skipped   int `json:"skipped"`
}
