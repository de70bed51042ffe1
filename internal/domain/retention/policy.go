package retention

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Action is what the executor does with expired records
type Action string

const (
	ActionDelete    Action = "DELETE"
	ActionArchive   Action = "ARCHIVE"
	ActionAnonymize Action = "ANONYMIZE"
)

// IsValid checks if the action is known
func (a Action) IsValid() bool {
	switch a {
	case ActionDelete, ActionArchive, ActionAnonymize:
		return true
	}
	return false
}

// DefaultInterval is how often a policy runs when none is configured
const DefaultInterval = 24 * time.Hour

// Policy describes how long records of a target table are kept
type Policy struct {
	shared.TenantAggregateRoot
	Name           string
	TargetTable    string
	Category       string
	RetentionDays  int
	Action         Action
	Conditions     map[string]string
	IntervalHours  int
	NextExecution  time.Time
	IsActive       bool
	LastExecutedAt *time.Time
	LastError      string
}

// NewPolicy validates against the target registry and creates an active policy
func NewPolicy(tenantID uuid.UUID, name, table, category string, retentionDays int, action Action, conditions map[string]string, intervalHours int, firstRun time.Time) (*Policy, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Policy name is required")
	}
	target, ok := LookupTarget(table)
	if !ok {
		return nil, shared.NewDomainErrorf("INVALID_INPUT", "Unsupported retention target %q", table)
	}
	if retentionDays < 1 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Retention must be at least one day")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_INPUT", "Unknown retention action %q", action)
	}
	if action == ActionAnonymize && len(target.PIIColumns) == 0 {
		return nil, shared.NewDomainErrorf("INVALID_INPUT", "Target %q has no columns to anonymize", table)
	}
	for col := range conditions {
		if !target.AllowsCondition(col) {
			return nil, shared.NewDomainErrorf("INVALID_INPUT", "Column %q cannot be used as a retention condition", col)
		}
	}
	if intervalHours <= 0 {
		intervalHours = int(DefaultInterval / time.Hour)
	}
	if firstRun.IsZero() {
		firstRun = time.Now().UTC()
	}
	return &Policy{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                strings.TrimSpace(name),
		TargetTable:         target.Table,
		Category:            category,
		RetentionDays:       retentionDays,
		Action:              action,
		Conditions:          conditions,
		IntervalHours:       intervalHours,
		NextExecution:       firstRun.UTC(),
		IsActive:            true,
	}, nil
}

// Interval returns the gap between executions
func (p *Policy) Interval() time.Duration {
	return time.Duration(p.IntervalHours) * time.Hour
}

// Cutoff returns the creation timestamp before which records expire
func (p *Policy) Cutoff(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -p.RetentionDays)
}

// IsDue reports whether the policy should run at now
func (p *Policy) IsDue(now time.Time) bool {
	return p.IsActive && !p.NextExecution.After(now)
}

// MarkSucceeded advances next execution by one interval
func (p *Policy) MarkSucceeded(now time.Time) {
	t := now.UTC()
	p.LastExecutedAt = &t
	p.LastError = ""
	p.NextExecution = t.Add(p.Interval())
	p.Touch()
}

// MarkFailed records the error and leaves next execution unchanged
func (p *Policy) MarkFailed(now time.Time, errMsg string) {
	t := now.UTC()
	p.LastExecutedAt = &t
	p.LastError = errMsg
	p.Touch()
}
