package finance

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepreciationMethod selects how cost is spread over useful life
type DepreciationMethod string

const (
	DepreciationStraightLine     DepreciationMethod = "STRAIGHT_LINE"
	DepreciationDecliningBalance DepreciationMethod = "DECLINING_BALANCE"
)

// AssetStatus represents the lifecycle of a fixed asset
type AssetStatus string

const (
	AssetStatusActive           AssetStatus = "ACTIVE"
	AssetStatusFullyDepreciated AssetStatus = "FULLY_DEPRECIATED"
	AssetStatusDisposed         AssetStatus = "DISPOSED"
)

// AssetAccounts are the GL accounts a fixed asset posts to
type AssetAccounts struct {
	AssetAccountID            uuid.UUID `json:"asset_account_id"`
	AccumulatedDepreciationID uuid.UUID `json:"accumulated_depreciation_id"`
	DepreciationExpenseID     uuid.UUID `json:"depreciation_expense_id"`
}

// FixedAsset is a capitalised asset depreciated per period
type FixedAsset struct {
	shared.TenantAggregateRoot
	Code                    string
	Name                    string
	AcquisitionDate         time.Time
	Cost                    decimal.Decimal
	SalvageValue            decimal.Decimal
	UsefulLifePeriods       int
	Method                  DepreciationMethod
	Accounts                AssetAccounts
	AccumulatedDepreciation decimal.Decimal
	PeriodsDepreciated      int
	Status                  AssetStatus
	AcquisitionEntryID      *uuid.UUID
	DisposalEntryID         *uuid.UUID
	DisposedAt              *time.Time
}

// NewFixedAsset validates and creates an active asset
func NewFixedAsset(tenantID uuid.UUID, code, name string, acquired time.Time, cost, salvage decimal.Decimal, life int, method DepreciationMethod, accounts AssetAccounts) (*FixedAsset, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Asset code and name are required")
	}
	if !cost.IsPositive() || salvage.IsNegative() || salvage.GreaterThanOrEqual(cost) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cost must be positive and exceed salvage value")
	}
	if life < 1 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Useful life must be at least one period")
	}
	if method != DepreciationStraightLine && method != DepreciationDecliningBalance {
		return nil, shared.NewDomainErrorf("INVALID_INPUT", "Unknown depreciation method %q", method)
	}
	if accounts.AssetAccountID == uuid.Nil || accounts.AccumulatedDepreciationID == uuid.Nil || accounts.DepreciationExpenseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Asset, accumulated depreciation and expense accounts are required")
	}
	return &FixedAsset{
		TenantAggregateRoot:     shared.NewTenantAggregateRoot(tenantID),
		Code:                    strings.TrimSpace(code),
		Name:                    strings.TrimSpace(name),
		AcquisitionDate:         ledger.CivilDate(acquired),
		Cost:                    cost,
		SalvageValue:            salvage,
		UsefulLifePeriods:       life,
		Method:                  method,
		Accounts:                accounts,
		AccumulatedDepreciation: decimal.Zero,
		Status:                  AssetStatusActive,
	}, nil
}

// BookValue is cost less accumulated depreciation
func (a *FixedAsset) BookValue() decimal.Decimal {
	return a.Cost.Sub(a.AccumulatedDepreciation)
}

// DepreciableRemaining is how much may still be depreciated before salvage
func (a *FixedAsset) DepreciableRemaining() decimal.Decimal {
	return a.BookValue().Sub(a.SalvageValue)
}

// NextDepreciation computes the charge for the next period at scale.
// The final period of useful life takes whatever remains down to salvage.
func (a *FixedAsset) NextDepreciation(scale int32) decimal.Decimal {
	if a.Status != AssetStatusActive {
		return decimal.Zero
	}
	remaining := a.DepreciableRemaining()
	if !remaining.IsPositive() {
		return decimal.Zero
	}
	periodsLeft := a.UsefulLifePeriods - a.PeriodsDepreciated
	if periodsLeft <= 1 {
		return remaining
	}

	var charge decimal.Decimal
	switch a.Method {
	case DepreciationDecliningBalance:
		rate := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(a.UsefulLifePeriods)))
		charge = a.BookValue().Mul(rate).Round(scale)
	default:
		charge = a.Cost.Sub(a.SalvageValue).Div(decimal.NewFromInt(int64(a.UsefulLifePeriods))).Round(scale)
	}
	if charge.GreaterThan(remaining) {
		charge = remaining
	}
	return charge
}

// RecordDepreciation applies a posted depreciation charge
func (a *FixedAsset) RecordDepreciation(amount decimal.Decimal) {
	a.AccumulatedDepreciation = a.AccumulatedDepreciation.Add(amount)
	a.PeriodsDepreciated++
	if !a.DepreciableRemaining().IsPositive() {
		a.Status = AssetStatusFullyDepreciated
	}
	a.Touch()
}

// MarkAcquired records the acquisition entry
func (a *FixedAsset) MarkAcquired(entryID uuid.UUID) {
	a.AcquisitionEntryID = &entryID
	a.Touch()
}

// Dispose records the disposal entry
func (a *FixedAsset) Dispose(entryID uuid.UUID, date time.Time) error {
	if a.Status == AssetStatusDisposed {
		return ledger.ErrWrongStatus.WithDetail("asset_id", a.ID.String())
	}
	d := ledger.CivilDate(date)
	a.Status = AssetStatusDisposed
	a.DisposalEntryID = &entryID
	a.DisposedAt = &d
	a.Touch()
	return nil
}

// DepreciationRecord marks an asset as depreciated for a period. One per (asset, period).
type DepreciationRecord struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	AssetID        uuid.UUID
	PeriodID       uuid.UUID
	Amount         decimal.Decimal
	JournalEntryID uuid.UUID
	CreatedAt      time.Time
}
