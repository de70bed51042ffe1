package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultScale is the number of fractional digits used when a currency has no override
	DefaultScale int32 = 2
	// MaxScale is the largest supported number of fractional digits
	MaxScale int32 = 6
)

// Precision resolves the fixed scale used for amounts in a currency
type Precision struct {
	Default     int32
	PerCurrency map[string]int32
}

// NewPrecision builds a Precision, clamping scales into [DefaultScale, MaxScale]
func NewPrecision(defaultScale int32, perCurrency map[string]int32) Precision {
	p := Precision{Default: clampScale(defaultScale), PerCurrency: make(map[string]int32, len(perCurrency))}
	for cur, s := range perCurrency {
		p.PerCurrency[strings.ToUpper(cur)] = clampScale(s)
	}
	return p
}

func clampScale(s int32) int32 {
	if s < DefaultScale {
		return DefaultScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

// Scale returns the scale for currency
func (p Precision) Scale(currency string) int32 {
	if s, ok := p.PerCurrency[strings.ToUpper(currency)]; ok {
		return s
	}
	if p.Default == 0 {
		return DefaultScale
	}
	return p.Default
}

// Round rounds half-up (away from zero) at the currency scale
func (p Precision) Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(p.Scale(currency))
}

// Unit returns the smallest representable amount at the currency scale
func (p Precision) Unit(currency string) decimal.Decimal {
	return decimal.New(1, -p.Scale(currency))
}

// FitsScale reports whether amount has no more fractional digits than the currency allows
func (p Precision) FitsScale(amount decimal.Decimal, currency string) bool {
	return amount.Equal(amount.Round(p.Scale(currency)))
}

// CivilDate truncates t to a calendar date at UTC midnight. Entry and period
// dates are civil dates; no timezone conversion is applied.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
