package finance

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRule maps a tax code to a rate and the liability account the tax is payable to
type TaxRule struct {
	shared.TenantAggregateRoot
	Code             string
	Name             string
	Rate             decimal.Decimal
	PayableAccountID uuid.UUID
	IsActive         bool
}

// NewTaxRule creates an active tax rule. Rate is a fraction, 0.08 for 8%.
func NewTaxRule(tenantID uuid.UUID, code, name string, rate decimal.Decimal, payableAccountID uuid.UUID) (*TaxRule, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Tax code is required")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Tax rate must be between 0 and 1")
	}
	if payableAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Tax payable account is required")
	}
	return &TaxRule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.ToUpper(strings.TrimSpace(code)),
		Name:                name,
		Rate:                rate,
		PayableAccountID:    payableAccountID,
		IsActive:            true,
	}, nil
}

// TaxCalculator yields the postable tax amount for a taxable base.
// Jurisdiction-specific rules plug in behind this interface.
type TaxCalculator interface {
	Calculate(rule *TaxRule, base decimal.Decimal, scale int32) decimal.Decimal
}

// RateTaxCalculator applies rule.Rate to the base, rounded half-up
type RateTaxCalculator struct{}

// Calculate implements TaxCalculator
func (RateTaxCalculator) Calculate(rule *TaxRule, base decimal.Decimal, scale int32) decimal.Decimal {
	return base.Mul(rule.Rate).Round(scale)
}
