package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/posting"
	retentionapp "github.com/erp/ledger/internal/application/retention"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Accounts is the account registry surface the loader needs
type Accounts interface {
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledgerapp.AccountResponse, error)
	Create(ctx context.Context, tenantID, actorID uuid.UUID, req ledgerapp.CreateAccountRequest) (*ledgerapp.AccountResponse, error)
}

// Periods is the period manager surface the loader needs
type Periods interface {
	ListPeriods(ctx context.Context, tenantID uuid.UUID) ([]ledgerapp.PeriodResponse, error)
	CreatePeriod(ctx context.Context, tenantID, actorID uuid.UUID, req ledgerapp.CreatePeriodRequest) (*ledgerapp.PeriodResponse, error)
}

// TaxRules is the receivables surface the loader needs
type TaxRules interface {
	ListTaxRules(ctx context.Context, tenantID uuid.UUID) ([]posting.TaxRuleResponse, error)
	CreateTaxRule(ctx context.Context, tenantID, actorID uuid.UUID, req posting.CreateTaxRuleRequest) (*posting.TaxRuleResponse, error)
}

// Policies is the retention surface the loader needs
type Policies interface {
	ListPolicies(ctx context.Context, tenantID uuid.UUID) ([]retentionapp.PolicyResponse, error)
	CreatePolicy(ctx context.Context, tenantID, actorID uuid.UUID, req retentionapp.CreatePolicyRequest) (*retentionapp.PolicyResponse, error)
}

// Result counts what a load created and skipped
type Result struct {
	AccountsCreated int
	AccountsSkipped int
	PeriodsCreated  int
	TaxRulesCreated int
	PoliciesCreated int
}

// Loader writes a seed file into one tenant through the application
// services. Records that already exist are left untouched, so a file can be
// loaded repeatedly.
type Loader struct {
	accounts Accounts
	periods  Periods
	taxRules TaxRules
	policies Policies
	logger   *zap.Logger
}

// NewLoader creates a new Loader
func NewLoader(accounts Accounts, periods Periods, taxRules TaxRules, policies Policies, logger *zap.Logger) *Loader {
	return &Loader{
		accounts: accounts,
		periods:  periods,
		taxRules: taxRules,
		policies: policies,
		logger:   logger,
	}
}

// Load applies the file to the tenant
func (l *Loader) Load(ctx context.Context, tenantID, actorID uuid.UUID, file *File) (*Result, error) {
	result := &Result{}
	ids, err := l.loadAccounts(ctx, tenantID, actorID, file, result)
	if err != nil {
		return result, err
	}
	if err := l.loadPeriods(ctx, tenantID, actorID, file.Periods, result); err != nil {
		return result, err
	}
	if err := l.loadTaxRules(ctx, tenantID, actorID, file.TaxRules, ids, result); err != nil {
		return result, err
	}
	if err := l.loadPolicies(ctx, tenantID, actorID, file.RetentionPolicies, result); err != nil {
		return result, err
	}

	l.logger.Info("seed loaded",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("accounts_created", result.AccountsCreated),
		zap.Int("accounts_skipped", result.AccountsSkipped),
		zap.Int("periods_created", result.PeriodsCreated),
		zap.Int("tax_rules_created", result.TaxRulesCreated),
		zap.Int("policies_created", result.PoliciesCreated),
	)
	return result, nil
}

func (l *Loader) loadAccounts(ctx context.Context, tenantID, actorID uuid.UUID, file *File, result *Result) (map[string]uuid.UUID, error) {
	ordered, err := file.AccountOrder()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]uuid.UUID, len(ordered))
	for _, a := range ordered {
		existing, err := l.accounts.GetByCode(ctx, tenantID, a.Code)
		switch {
		case err == nil:
			ids[a.Code] = existing.ID
			result.AccountsSkipped++
			continue
		case !errors.Is(err, shared.ErrNotFound):
			return nil, fmt.Errorf("look up account %s: %w", a.Code, err)
		}

		req := ledgerapp.CreateAccountRequest{
			Code:             a.Code,
			Name:             a.Name,
			Type:             strings.ToUpper(a.Type),
			SubType:          a.SubType,
			Currency:         a.Currency,
			CashFlowCategory: a.CashFlow,
			IsSystem:         a.System,
			Description:      a.Description,
		}
		if a.Parent != "" {
			parent := ids[a.Parent]
			req.ParentID = &parent
		}
		created, err := l.accounts.Create(ctx, tenantID, actorID, req)
		if err != nil {
			return nil, fmt.Errorf("create account %s: %w", a.Code, err)
		}
		ids[a.Code] = created.ID
		result.AccountsCreated++
	}
	return ids, nil
}

func (l *Loader) loadPeriods(ctx context.Context, tenantID, actorID uuid.UUID, periods []PeriodSeed, result *Result) error {
	if len(periods) == 0 {
		return nil
	}
	existing, err := l.periods.ListPeriods(ctx, tenantID)
	if err != nil {
		return err
	}
	labels := make(map[string]bool, len(existing))
	for _, p := range existing {
		labels[p.Label] = true
	}
	for _, p := range periods {
		if labels[p.Label] {
			continue
		}
		start, end, err := p.Dates()
		if err != nil {
			return fmt.Errorf("period %s: %w", p.Label, err)
		}
		if _, err := l.periods.CreatePeriod(ctx, tenantID, actorID, ledgerapp.CreatePeriodRequest{
			Label:      p.Label,
			PeriodType: strings.ToUpper(p.Type),
			StartDate:  start,
			EndDate:    end,
		}); err != nil {
			return fmt.Errorf("create period %s: %w", p.Label, err)
		}
		result.PeriodsCreated++
	}
	return nil
}

func (l *Loader) loadTaxRules(ctx context.Context, tenantID, actorID uuid.UUID, rules []TaxRuleSeed, ids map[string]uuid.UUID, result *Result) error {
	if len(rules) == 0 {
		return nil
	}
	existing, err := l.taxRules.ListTaxRules(ctx, tenantID)
	if err != nil {
		return err
	}
	codes := make(map[string]bool, len(existing))
	for _, r := range existing {
		codes[r.Code] = true
	}
	for _, r := range rules {
		code := strings.ToUpper(r.Code)
		if codes[code] {
			continue
		}
		payable, ok := ids[r.Payable]
		if !ok {
			acct, err := l.accounts.GetByCode(ctx, tenantID, r.Payable)
			if err != nil {
				return fmt.Errorf("tax rule %s payable account %s: %w", r.Code, r.Payable, err)
			}
			payable = acct.ID
		}
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return fmt.Errorf("tax rule %s rate: %w", r.Code, err)
		}
		if _, err := l.taxRules.CreateTaxRule(ctx, tenantID, actorID, posting.CreateTaxRuleRequest{
			Code:             code,
			Name:             r.Name,
			Rate:             rate,
			PayableAccountID: payable,
		}); err != nil {
			return fmt.Errorf("create tax rule %s: %w", r.Code, err)
		}
		result.TaxRulesCreated++
	}
	return nil
}

func (l *Loader) loadPolicies(ctx context.Context, tenantID, actorID uuid.UUID, policies []PolicySeed, result *Result) error {
	if len(policies) == 0 {
		return nil
	}
	existing, err := l.policies.ListPolicies(ctx, tenantID)
	if err != nil {
		return err
	}
	names := make(map[string]bool, len(existing))
	for _, p := range existing {
		names[p.Name] = true
	}
	for _, p := range policies {
		if names[p.Name] {
			continue
		}
		if _, err := l.policies.CreatePolicy(ctx, tenantID, actorID, retentionapp.CreatePolicyRequest{
			Name:          p.Name,
			TargetTable:   p.Table,
			Category:      p.Category,
			RetentionDays: p.RetentionDays,
			Action:        p.Action,
			Conditions:    p.Conditions,
			IntervalHours: p.IntervalHours,
		}); err != nil {
			return fmt.Errorf("create retention policy %s: %w", p.Name, err)
		}
		result.PoliciesCreated++
	}
	return nil
}
