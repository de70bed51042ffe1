package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name     string
		code     string
		typ      AccountType
		currency string
		wantErr  error
		normal   NormalBalance
	}{
		{"asset is debit normal", "1000", AccountTypeAsset, "USD", nil, NormalBalanceDebit},
		{"expense is debit normal", "5000", AccountTypeExpense, "usd", nil, NormalBalanceDebit},
		{"revenue is credit normal", "4000", AccountTypeRevenue, "EUR", nil, NormalBalanceCredit},
		{"liability is credit normal", "2000", AccountTypeLiability, "USD", nil, NormalBalanceCredit},
		{"equity is credit normal", "3010", AccountTypeEquity, "USD", nil, NormalBalanceCredit},
		{"invalid type", "1001", AccountType("CONTRA"), "USD", ErrInvalidType, ""},
		{"code too long", "123456789012345678901", AccountTypeAsset, "USD", ErrInvalidAccountCode, ""},
		{"code with space", "10 00", AccountTypeAsset, "USD", ErrInvalidAccountCode, ""},
		{"bad currency", "1002", AccountTypeAsset, "XYZQ", ErrInvalidCurrency, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			acct, err := NewAccount(tenantID, tc.code, "Test", tc.typ, tc.currency)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.normal, acct.NormalBalance)
			assert.True(t, acct.IsActive)
			assert.Len(t, acct.Currency, 3)
		})
	}
}

func TestAccount_Delta(t *testing.T) {
	cash, _ := NewAccount(uuid.New(), "1000", "Cash", AccountTypeAsset, "USD")
	revenue, _ := NewAccount(uuid.New(), "4000", "Revenue", AccountTypeRevenue, "USD")

	assert.True(t, cash.Delta(d("500"), decimal.Zero).Equal(d("500")))
	assert.True(t, cash.Delta(decimal.Zero, d("200")).Equal(d("-200")))
	assert.True(t, revenue.Delta(decimal.Zero, d("500")).Equal(d("500")))
	assert.True(t, revenue.Delta(d("100"), decimal.Zero).Equal(d("-100")))
}

func TestAccount_Deactivate(t *testing.T) {
	t.Run("zero balance", func(t *testing.T) {
		a, _ := NewAccount(uuid.New(), "1000", "Cash", AccountTypeAsset, "EUR")
		require.NoError(t, a.Deactivate("USD"))
		assert.False(t, a.IsActive)
	})

	t.Run("balance in foreign currency blocks", func(t *testing.T) {
		a, _ := NewAccount(uuid.New(), "1000", "Cash", AccountTypeAsset, "EUR")
		a.ApplyDelta(d("10"))
		assert.ErrorIs(t, a.Deactivate("USD"), ErrHasOpenBalance)
		assert.True(t, a.IsActive)
	})

	t.Run("balance in closing currency allowed", func(t *testing.T) {
		a, _ := NewAccount(uuid.New(), "1000", "Cash", AccountTypeAsset, "USD")
		a.ApplyDelta(d("10"))
		require.NoError(t, a.Deactivate("USD"))
	})
}

func TestCheckHierarchy(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	parents := map[uuid.UUID]*uuid.UUID{a: nil, b: &a, c: &b}
	parentOf := func(id uuid.UUID) (*uuid.UUID, error) { return parents[id], nil }

	assert.NoError(t, CheckHierarchy(c, b, parentOf))
	assert.ErrorIs(t, CheckHierarchy(a, c, parentOf), ErrInvalidHierarchy)
	assert.ErrorIs(t, CheckHierarchy(a, a, parentOf), ErrInvalidHierarchy)
}
