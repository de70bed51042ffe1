package ledger

import (
	"regexp"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// AccountType is the top-level classification of an account
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is one of the five allowed types
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// IsTemporary reports whether balances of this type are zeroed at period close
func (t AccountType) IsTemporary() bool {
	return t == AccountTypeRevenue || t == AccountTypeExpense
}

// NormalBalance returns the side on which this type carries a positive balance
func (t AccountType) NormalBalance() NormalBalance {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return NormalBalanceDebit
	}
	return NormalBalanceCredit
}

// NormalBalance is the side on which an account's balance is positive
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

// CashFlowCategory classifies account movements for the cash-flow statement
type CashFlowCategory string

const (
	CashFlowNone      CashFlowCategory = "NONE"
	CashFlowCash      CashFlowCategory = "CASH"
	CashFlowOperating CashFlowCategory = "OPERATING"
	CashFlowInvesting CashFlowCategory = "INVESTING"
	CashFlowFinancing CashFlowCategory = "FINANCING"
)

// IsValid checks if the category is recognised
func (c CashFlowCategory) IsValid() bool {
	switch c {
	case CashFlowNone, CashFlowCash, CashFlowOperating, CashFlowInvesting, CashFlowFinancing:
		return true
	}
	return false
}

var accountCodePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,20}$`)

// ValidateAccountCode checks the code format
func ValidateAccountCode(code string) error {
	if !accountCodePattern.MatchString(code) {
		return ErrInvalidAccountCode.WithDetail("code", code)
	}
	return nil
}

// NormalizeCurrency validates an ISO 4217 code and returns it upper-cased
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", ErrInvalidCurrency.WithDetail("currency", code)
	}
	return unit.String(), nil
}

// Account is a chart-of-accounts node. CurrentBalance is a cache of the
// signed sum of posted lines by normal-balance convention.
type Account struct {
	shared.TenantAggregateRoot
	Code             string
	Name             string
	Type             AccountType
	SubType          string
	ParentID         *uuid.UUID
	NormalBalance    NormalBalance
	Currency         string
	IsActive         bool
	IsSystem         bool
	CashFlowCategory CashFlowCategory
	CurrentBalance   decimal.Decimal
	Description      string
}

// NewAccount creates an active account with its normal balance derived from type
func NewAccount(tenantID uuid.UUID, code, name string, accountType AccountType, currencyCode string) (*Account, error) {
	if err := ValidateAccountCode(code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, ErrInvalidType.WithDetail("type", string(accountType))
	}
	cur, err := NormalizeCurrency(currencyCode)
	if err != nil {
		return nil, err
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                strings.TrimSpace(name),
		Type:                accountType,
		NormalBalance:       accountType.NormalBalance(),
		Currency:            cur,
		IsActive:            true,
		CashFlowCategory:    CashFlowNone,
		CurrentBalance:      decimal.Zero,
	}, nil
}

// Delta returns the balance change a line causes on this account
func (a *Account) Delta(debit, credit decimal.Decimal) decimal.Decimal {
	if a.NormalBalance == NormalBalanceDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// ApplyDelta adds delta to the cached balance
func (a *Account) ApplyDelta(delta decimal.Decimal) {
	a.CurrentBalance = a.CurrentBalance.Add(delta)
	a.Touch()
}

// Rename changes the human name
func (a *Account) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_INPUT", "Account name cannot be empty")
	}
	a.Name = strings.TrimSpace(name)
	a.Touch()
	return nil
}

// ChangeCode changes the code. Callers must ensure no posted line references the account.
func (a *Account) ChangeCode(code string) error {
	if err := ValidateAccountCode(code); err != nil {
		return err
	}
	a.Code = code
	a.Touch()
	return nil
}

// ChangeType changes the type and re-derives the normal balance.
// Callers must ensure no posted line references the account.
func (a *Account) ChangeType(t AccountType) error {
	if !t.IsValid() {
		return ErrInvalidType.WithDetail("type", string(t))
	}
	a.Type = t
	a.NormalBalance = t.NormalBalance()
	a.Touch()
	return nil
}

// SetParent assigns the parent. Cycle detection needs the ancestor chain and
// is done with CheckHierarchy before calling this.
func (a *Account) SetParent(parentID *uuid.UUID) error {
	if parentID != nil && *parentID == a.ID {
		return ErrInvalidHierarchy.WithDetail("account_id", a.ID.String())
	}
	a.ParentID = parentID
	a.Touch()
	return nil
}

// SetCashFlowCategory sets the cash-flow classification tag
func (a *Account) SetCashFlowCategory(c CashFlowCategory) error {
	if !c.IsValid() {
		return shared.NewDomainErrorf("INVALID_INPUT", "Unknown cash flow category %q", c)
	}
	a.CashFlowCategory = c
	a.Touch()
	return nil
}

// Activate marks the account usable on new postings
func (a *Account) Activate() {
	a.IsActive = true
	a.Touch()
}

// Deactivate marks the account inactive. A non-zero balance blocks
// deactivation unless the account is denominated in the closing currency.
func (a *Account) Deactivate(closingCurrency string) error {
	if !a.CurrentBalance.IsZero() && !strings.EqualFold(a.Currency, closingCurrency) {
		return ErrHasOpenBalance.
			WithDetail("account_id", a.ID.String()).
			WithDetail("balance", a.CurrentBalance.String())
	}
	a.IsActive = false
	a.Touch()
	return nil
}

// CheckHierarchy walks up from parentID and fails if accountID is reached.
// parentOf returns the parent of an account, or nil at the root.
func CheckHierarchy(accountID, parentID uuid.UUID, parentOf func(uuid.UUID) (*uuid.UUID, error)) error {
	seen := map[uuid.UUID]bool{}
	current := &parentID
	for current != nil {
		if *current == accountID || seen[*current] {
			return ErrInvalidHierarchy.
				WithDetail("account_id", accountID.String()).
				WithDetail("parent_id", parentID.String())
		}
		seen[*current] = true
		next, err := parentOf(*current)
		if err != nil {
			return err
		}
		current = next
	}
	return nil
}
