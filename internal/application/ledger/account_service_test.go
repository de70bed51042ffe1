package ledger

import (
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Create(t *testing.T) {
	f := newFixture(t)

	resp, err := f.accounts.Create(f.ctx, f.tenantID, f.actorID, CreateAccountRequest{
		Code:             "1000",
		Name:             "Cash",
		Type:             "asset",
		CashFlowCategory: "cash",
	})
	require.NoError(t, err)
	assert.Equal(t, string(ledger.AccountTypeAsset), resp.Type)
	assert.Equal(t, string(ledger.NormalBalanceDebit), resp.NormalBalance)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, string(ledger.CashFlowCash), resp.CashFlowCategory)
	assert.True(t, resp.IsActive)

	_, err = f.accounts.Create(f.ctx, f.tenantID, f.actorID, CreateAccountRequest{Code: "1000", Name: "Dup", Type: "asset"})
	assert.ErrorIs(t, err, ledger.ErrDuplicateCode)

	_, err = f.accounts.Create(f.ctx, f.tenantID, f.actorID, CreateAccountRequest{Code: "bad code!", Name: "x", Type: "asset"})
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountCode)

	_, err = f.accounts.Create(f.ctx, f.tenantID, f.actorID, CreateAccountRequest{Code: "9000", Name: "x", Type: "contra"})
	assert.ErrorIs(t, err, ledger.ErrInvalidType)

	byCode, err := f.accounts.GetByCode(f.ctx, f.tenantID, "1000")
	require.NoError(t, err)
	assert.Equal(t, resp.ID, byCode.ID)
}

func TestAccountService_Hierarchy(t *testing.T) {
	f := newFixture(t)
	assets := f.account("1", "Assets", ledger.AccountTypeAsset)
	current := f.account("10", "Current assets", ledger.AccountTypeAsset)

	_, err := f.accounts.Update(f.ctx, f.tenantID, f.actorID, current, UpdateAccountRequest{ParentID: &assets})
	require.NoError(t, err)

	_, err = f.accounts.Update(f.ctx, f.tenantID, f.actorID, assets, UpdateAccountRequest{ParentID: &current})
	assert.ErrorIs(t, err, ledger.ErrInvalidHierarchy)

	children, err := f.accounts.List(f.ctx, f.tenantID, AccountListFilter{ParentID: &assets})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "10", children[0].Code)
}

func TestAccountService_UpdateCodeLockedOnceUsed(t *testing.T) {
	f := newFixture(t)
	cash := f.account("1000", "Cash", ledger.AccountTypeAsset)
	revenue := f.account("4000", "Revenue", ledger.AccountTypeRevenue)
	f.period("2026-01", testutil.Date(2026, 1, 1), testutil.Date(2026, 1, 31))

	code := "1001"
	renamed, err := f.accounts.Update(f.ctx, f.tenantID, f.actorID, cash, UpdateAccountRequest{Code: &code})
	require.NoError(t, err)
	assert.Equal(t, "1001", renamed.Code)

	f.postEntry(testutil.Date(2026, 1, 5), cash, revenue, "10")

	code = "1002"
	_, err = f.accounts.Update(f.ctx, f.tenantID, f.actorID, cash, UpdateAccountRequest{Code: &code})
	assert.ErrorIs(t, err, ledger.ErrWrongStatus)

	name := "Cash on hand"
	updated, err := f.accounts.Update(f.ctx, f.tenantID, f.actorID, cash, UpdateAccountRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Cash on hand", updated.Name)
	assert.True(t, updated.CurrentBalance.Equal(dec("10")), "metadata update keeps the cached balance")
}

func TestAccountService_Delete(t *testing.T) {
	f := newFixture(t)
	cash := f.account("1000", "Cash", ledger.AccountTypeAsset)
	revenue := f.account("4000", "Revenue", ledger.AccountTypeRevenue)
	spare := f.account("4900", "Spare", ledger.AccountTypeRevenue)
	f.period("2026-01", testutil.Date(2026, 1, 1), testutil.Date(2026, 1, 31))
	f.postEntry(testutil.Date(2026, 1, 5), cash, revenue, "10")

	err := f.accounts.Delete(f.ctx, f.tenantID, f.actorID, cash)
	assert.ErrorIs(t, err, ledger.ErrWrongStatus)

	require.NoError(t, f.accounts.Delete(f.ctx, f.tenantID, f.actorID, spare))
	_, err = f.accounts.Get(f.ctx, f.tenantID, spare)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAccountService_Deactivate_OpenBalance(t *testing.T) {
	f := newFixture(t)
	cash := f.account("1000", "Cash", ledger.AccountTypeAsset)
	revenue := f.account("4000", "Revenue", ledger.AccountTypeRevenue)
	f.period("2026-01", testutil.Date(2026, 1, 1), testutil.Date(2026, 1, 31))
	f.postEntry(testutil.Date(2026, 1, 5), cash, revenue, "10")

	resp, err := f.accounts.Deactivate(f.ctx, f.tenantID, f.actorID, cash)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	_, err = f.draft(testutil.Date(2026, 1, 6), cash, revenue, "1", "1")
	assert.ErrorIs(t, err, ledger.ErrInactiveAccount)
}

func TestAccountService_GetBalance_AsOf(t *testing.T) {
	f := newFixture(t)
	cash := f.account("1000", "Cash", ledger.AccountTypeAsset)
	revenue := f.account("4000", "Revenue", ledger.AccountTypeRevenue)
	f.period("2026-01", testutil.Date(2026, 1, 1), testutil.Date(2026, 1, 31))
	f.postEntry(testutil.Date(2026, 1, 5), cash, revenue, "10")
	f.postEntry(testutil.Date(2026, 1, 25), cash, revenue, "15")

	cached, err := f.accounts.GetBalance(f.ctx, f.tenantID, cash, nil)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.True(t, cached.Balance.Equal(dec("25")))

	asOf := testutil.Date(2026, 1, 10)
	historic, err := f.accounts.GetBalance(f.ctx, f.tenantID, cash, &asOf)
	require.NoError(t, err)
	assert.False(t, historic.Cached)
	assert.True(t, historic.Balance.Equal(dec("10")))
}

func TestAccountService_RebuildBalances(t *testing.T) {
	f := newFixture(t)
	cash := f.account("1000", "Cash", ledger.AccountTypeAsset)
	revenue := f.account("4000", "Revenue", ledger.AccountTypeRevenue)
	f.period("2026-01", testutil.Date(2026, 1, 1), testutil.Date(2026, 1, 31))
	f.postEntry(testutil.Date(2026, 1, 5), cash, revenue, "10")

	require.NoError(t, f.db.Exec("UPDATE accounts SET current_balance = ? WHERE id = ?", "999", cash).Error)

	resp, err := f.accounts.RebuildBalances(f.ctx, f.tenantID, f.actorID)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Checked)
	require.Len(t, resp.Corrected, 1)
	assert.Equal(t, cash, resp.Corrected[0].AccountID)
	assert.True(t, resp.Corrected[0].Before.Equal(dec("999")))
	assert.True(t, f.balance(cash).Equal(dec("10")))
}
