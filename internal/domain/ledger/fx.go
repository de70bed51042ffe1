package ledger

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FXPolicy converts foreign-currency lines into the account currency.
// Rounding differences up to one unit of the account currency per converted
// line are booked to RoundingAccountID so that the entry stays exactly balanced.
type FXPolicy struct {
	Precision         Precision
	RoundingAccountID uuid.UUID
}

// Convert returns lines with every foreign amount translated at its FX rate.
// accountCurrency maps each referenced account to its currency.
func (p FXPolicy) Convert(lines []JournalLine, accountCurrency map[uuid.UUID]string) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines)+1)
	var bad []int
	converted := 0
	tolerance := decimal.Zero

	for i, l := range lines {
		num := lineNumberOf(l, i)
		if !l.IsValid() {
			bad = append(bad, num)
			continue
		}
		acctCur := accountCurrency[l.AccountID]
		if l.Currency == "" || strings.EqualFold(l.Currency, acctCur) {
			if !p.Precision.FitsScale(l.Debit, acctCur) || !p.Precision.FitsScale(l.Credit, acctCur) {
				bad = append(bad, num)
				continue
			}
			l.Currency = ""
			out = append(out, l)
			continue
		}
		if !l.FXRate.IsPositive() {
			bad = append(bad, num)
			continue
		}
		l.Currency = strings.ToUpper(l.Currency)
		if l.Debit.IsPositive() {
			l.OriginalAmount = l.Debit
			l.Debit = p.Precision.Round(l.Debit.Mul(l.FXRate), acctCur)
		} else {
			l.OriginalAmount = l.Credit
			l.Credit = p.Precision.Round(l.Credit.Mul(l.FXRate), acctCur)
		}
		converted++
		tolerance = tolerance.Add(p.Precision.Unit(acctCur))
		out = append(out, l)
	}
	if len(bad) > 0 {
		return nil, ErrInvalidLine.WithLines(bad...)
	}
	if converted == 0 {
		return out, nil
	}

	residual := decimal.Zero
	for _, l := range out {
		residual = residual.Add(l.Net())
	}
	if residual.IsZero() {
		return out, nil
	}

	if residual.Abs().GreaterThan(tolerance) || p.RoundingAccountID == uuid.Nil {
		return nil, ErrUnbalancedEntry.WithDetail("fx_residual", residual.String())
	}

	rounding := JournalLine{
		AccountID:    p.RoundingAccountID,
		Description:  "FX rounding",
		IsFXRounding: true,
	}
	if residual.IsPositive() {
		rounding.Debit, rounding.Credit = decimal.Zero, residual
	} else {
		rounding.Debit, rounding.Credit = residual.Abs(), decimal.Zero
	}
	return append(out, rounding), nil
}
