package allocation

import (
	"sort"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method is the distribution method of a rule
type Method string

const (
	MethodPercentage  Method = "PERCENTAGE"
	MethodEqual       Method = "EQUAL"
	MethodWeighted    Method = "WEIGHTED"
	MethodFixedAmount Method = "FIXED_AMOUNT"
)

// IsValid checks if the method is known
func (m Method) IsValid() bool {
	switch m {
	case MethodPercentage, MethodEqual, MethodWeighted, MethodFixedAmount:
		return true
	}
	return false
}

// RuleStatus is the activation state of a rule
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "ACTIVE"
	RuleStatusInactive RuleStatus = "INACTIVE"
)

// PercentageTolerance bounds how far percentage targets may stray from 100
var PercentageTolerance = decimal.RequireFromString("0.0001")

var hundred = decimal.NewFromInt(100)

// Target is one destination of a rule
type Target struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Percentage  decimal.Decimal `json:"percentage"`
	FixedAmount decimal.Decimal `json:"fixed_amount"`
	Weight      decimal.Decimal `json:"weight"`
	Description string          `json:"description,omitempty"`
}

// Rule distributes a posted entry's debit total over target accounts
type Rule struct {
	shared.TenantAggregateRoot
	Code            string
	Name            string
	Method          Method
	SourceAccountID *uuid.UUID
	EffectiveFrom   time.Time
	EffectiveTo     *time.Time
	Priority        int
	Status          RuleStatus
	Targets         []Target
}

// NewRule validates and creates an active rule
func NewRule(tenantID uuid.UUID, code, name string, method Method, targets []Target, effectiveFrom time.Time) (*Rule, error) {
	r := &Rule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.TrimSpace(code),
		Name:                strings.TrimSpace(name),
		Method:              method,
		EffectiveFrom:       ledger.CivilDate(effectiveFrom),
		Status:              RuleStatusActive,
		Targets:             targets,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func invalidRule(msg string) *shared.DomainError {
	return shared.NewDomainError(ledger.CodeInvalidAllocationRule, msg)
}

// Validate checks structural invariants of the rule
func (r *Rule) Validate() error {
	if r.Code == "" {
		return invalidRule("Rule code cannot be empty")
	}
	if !r.Method.IsValid() {
		return invalidRule("Unknown allocation method " + string(r.Method))
	}
	if len(r.Targets) == 0 {
		return invalidRule("Rule needs at least one target")
	}
	if r.EffectiveTo != nil && r.EffectiveTo.Before(r.EffectiveFrom) {
		return invalidRule("Effective end precedes effective start")
	}
	for i, t := range r.Targets {
		if t.AccountID == uuid.Nil {
			return invalidRule("Target account is required").WithLines(i + 1)
		}
	}

	switch r.Method {
	case MethodPercentage:
		sum := decimal.Zero
		for i, t := range r.Targets {
			if !t.Percentage.IsPositive() {
				return invalidRule("Percentages must be positive").WithLines(i + 1)
			}
			sum = sum.Add(t.Percentage)
		}
		if sum.Sub(hundred).Abs().GreaterThan(PercentageTolerance) {
			return invalidRule("Percentages must sum to 100").WithDetail("sum", sum.String())
		}
	case MethodWeighted:
		for i, t := range r.Targets {
			if !t.Weight.IsPositive() {
				return invalidRule("Weights must be strictly positive").WithLines(i + 1)
			}
		}
	case MethodFixedAmount:
		for i, t := range r.Targets {
			if !t.FixedAmount.IsPositive() {
				return invalidRule("Fixed amounts must be positive").WithLines(i + 1)
			}
		}
	}
	return nil
}

// SetStatus activates or deactivates the rule
func (r *Rule) SetStatus(status RuleStatus) error {
	if status != RuleStatusActive && status != RuleStatusInactive {
		return shared.NewDomainErrorf("INVALID_INPUT", "Unknown rule status %q", status)
	}
	r.Status = status
	r.Touch()
	return nil
}

// Applies reports whether the rule covers an entry dated on date with the given debit accounts
func (r *Rule) Applies(date time.Time, debitAccounts []uuid.UUID) bool {
	if r.Status != RuleStatusActive {
		return false
	}
	day := ledger.CivilDate(date)
	if day.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && day.After(*r.EffectiveTo) {
		return false
	}
	if r.SourceAccountID == nil {
		return true
	}
	for _, id := range debitAccounts {
		if id == *r.SourceAccountID {
			return true
		}
	}
	return false
}

// MatchResult is the outcome of rule selection: either a rule or no match
type MatchResult struct {
	rule *Rule
}

// Matched wraps a selected rule
func Matched(r *Rule) MatchResult { return MatchResult{rule: r} }

// NoMatch is the empty result
func NoMatch() MatchResult { return MatchResult{} }

// Rule returns the selected rule and whether there was one
func (m MatchResult) Rule() (*Rule, bool) {
	return m.rule, m.rule != nil
}

// SelectRule picks the applicable rule with the lowest priority value,
// breaking ties by the lexicographically smallest code.
func SelectRule(rules []*Rule, date time.Time, debitAccounts []uuid.UUID) MatchResult {
	candidates := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if r.Applies(date, debitAccounts) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return NoMatch()
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].Code < candidates[j].Code
	})
	return Matched(candidates[0])
}
