package allocation

import (
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Calculator computes the unrounded-then-rounded share of each target for one method
type Calculator interface {
	Method() Method
	Description() string
	// Shares returns one amount per target, each rounded half-up at scale.
	// The residual is applied by Distribute, not by the calculator.
	Shares(base decimal.Decimal, targets []Target, scale int32) ([]decimal.Decimal, error)
}

type percentageCalculator struct{}

func (percentageCalculator) Method() Method      { return MethodPercentage }
func (percentageCalculator) Description() string { return "base x pct / 100 per target" }

func (percentageCalculator) Shares(base decimal.Decimal, targets []Target, scale int32) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(targets))
	for i, t := range targets {
		out[i] = base.Mul(t.Percentage).Div(hundred).Round(scale)
	}
	return out, nil
}

type equalCalculator struct{}

func (equalCalculator) Method() Method      { return MethodEqual }
func (equalCalculator) Description() string { return "base / N per target" }

func (equalCalculator) Shares(base decimal.Decimal, targets []Target, scale int32) ([]decimal.Decimal, error) {
	share := base.Div(decimal.NewFromInt(int64(len(targets)))).Round(scale)
	out := make([]decimal.Decimal, len(targets))
	for i := range targets {
		out[i] = share
	}
	return out, nil
}

type weightedCalculator struct{}

func (weightedCalculator) Method() Method      { return MethodWeighted }
func (weightedCalculator) Description() string { return "base x weight / sum(weights) per target" }

func (weightedCalculator) Shares(base decimal.Decimal, targets []Target, scale int32) ([]decimal.Decimal, error) {
	total := decimal.Zero
	for _, t := range targets {
		total = total.Add(t.Weight)
	}
	if !total.IsPositive() {
		return nil, invalidRule("Weights must be strictly positive")
	}
	out := make([]decimal.Decimal, len(targets))
	for i, t := range targets {
		out[i] = base.Mul(t.Weight).Div(total).Round(scale)
	}
	return out, nil
}

type fixedAmountCalculator struct{}

func (fixedAmountCalculator) Method() Method      { return MethodFixedAmount }
func (fixedAmountCalculator) Description() string { return "configured fixed amount per target" }

func (fixedAmountCalculator) Shares(base decimal.Decimal, targets []Target, scale int32) ([]decimal.Decimal, error) {
	sum := decimal.Zero
	out := make([]decimal.Decimal, len(targets))
	for i, t := range targets {
		out[i] = t.FixedAmount.Round(scale)
		sum = sum.Add(out[i])
	}
	tolerance := decimal.New(int64(len(targets)), -scale)
	if sum.Sub(base).Abs().GreaterThan(tolerance) {
		return nil, invalidRule("Fixed amounts do not sum to the allocation base").
			WithDetail("sum", sum.String()).
			WithDetail("base", base.String())
	}
	return out, nil
}

var calculators = map[Method]Calculator{
	MethodPercentage:  percentageCalculator{},
	MethodEqual:       equalCalculator{},
	MethodWeighted:    weightedCalculator{},
	MethodFixedAmount: fixedAmountCalculator{},
}

// CalculatorFor returns the calculator registered for method
func CalculatorFor(method Method) (Calculator, error) {
	c, ok := calculators[method]
	if !ok {
		return nil, invalidRule("Unknown allocation method " + string(method))
	}
	return c, nil
}

// Distribute splits base over the rule's targets at scale. The rounding
// residual (base minus the sum of shares) goes to the first target, so the
// result always sums to base exactly.
func Distribute(rule *Rule, base decimal.Decimal, scale int32) ([]decimal.Decimal, error) {
	calc, err := CalculatorFor(rule.Method)
	if err != nil {
		return nil, err
	}
	shares, err := calc.Shares(base, rule.Targets, scale)
	if err != nil {
		return nil, err
	}

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	shares[0] = shares[0].Add(base.Sub(sum))

	total := decimal.Zero
	for i, s := range shares {
		if s.IsNegative() {
			return nil, shared.NewDomainError(ledger.CodeAllocationSumMismatch, "Allocated amount is negative").WithLines(i + 1)
		}
		total = total.Add(s)
	}
	if !total.Equal(base) {
		return nil, shared.NewDomainError(ledger.CodeAllocationSumMismatch, "Allocated amounts do not sum to the base").
			WithDetail("base", base.String()).
			WithDetail("allocated", total.String())
	}
	return shares, nil
}
