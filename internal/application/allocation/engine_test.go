package allocation

import (
	"context"
	"testing"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type allocFixture struct {
	t        *testing.T
	ctx      context.Context
	tenantID uuid.UUID
	actorID  uuid.UUID
	uow      unitofwork.UnitOfWork
	accounts *ledgerapp.AccountService
	journal  *ledgerapp.JournalService
	periods  *ledgerapp.PeriodService
	engine   *Engine
	rules    *RuleService
}

func newAllocFixture(t *testing.T) *allocFixture {
	t.Helper()
	return newAllocFixtureOn(t, testutil.NewSQLiteDB(t), nil)
}

// newAllocFixtureOn builds the fixture on db, recording events to outbox when set
func newAllocFixtureOn(t *testing.T, db *gorm.DB, outbox persistence.OutboxWriter) *allocFixture {
	t.Helper()
	uow := persistence.NewGormUnitOfWork(db, outbox)
	settings := ledgerapp.NewSettings(config.LedgerConfig{BaseCurrency: "USD", DefaultScale: 2})
	logger := zap.NewNop()
	recorder := auditapp.NewRecorder(time.Second, logger)
	journal := ledgerapp.NewJournalService(uow, recorder, settings, logger)

	f := &allocFixture{
		t:        t,
		ctx:      context.Background(),
		tenantID: testutil.TestTenantID(),
		actorID:  testutil.TestUserID(),
		uow:      uow,
		accounts: ledgerapp.NewAccountService(uow, recorder, settings, logger),
		journal:  journal,
		periods:  ledgerapp.NewPeriodService(uow, journal, recorder, settings, logger),
		engine:   NewEngine(uow, journal, recorder, settings, logger),
		rules:    NewRuleService(uow, recorder, logger),
	}
	_, err := f.periods.CreatePeriod(f.ctx, f.tenantID, f.actorID, ledgerapp.CreatePeriodRequest{
		Label:      "2026-03",
		PeriodType: string(ledger.PeriodTypeMonth),
		StartDate:  testutil.Date(2026, 3, 1),
		EndDate:    testutil.Date(2026, 3, 31),
	})
	require.NoError(t, err)
	return f
}

func (f *allocFixture) account(code string, typ ledger.AccountType) uuid.UUID {
	f.t.Helper()
	resp, err := f.accounts.Create(f.ctx, f.tenantID, f.actorID, ledgerapp.CreateAccountRequest{
		Code: code, Name: "Account " + code, Type: string(typ),
	})
	require.NoError(f.t, err)
	return resp.ID
}

func (f *allocFixture) post(debitID, creditID uuid.UUID, amount string) *ledgerapp.EntryResponse {
	f.t.Helper()
	amt := decimal.RequireFromString(amount)
	d, err := f.journal.Draft(f.ctx, f.tenantID, f.actorID, ledgerapp.DraftEntryRequest{
		EntryDate: testutil.Date(2026, 3, 10),
		Lines: []ledgerapp.LineRequest{
			{AccountID: debitID, Debit: amt},
			{AccountID: creditID, Credit: amt},
		},
	})
	require.NoError(f.t, err)
	_, err = f.journal.Submit(f.ctx, f.tenantID, f.actorID, d.ID)
	require.NoError(f.t, err)
	_, err = f.journal.Approve(f.ctx, f.tenantID, f.actorID, d.ID)
	require.NoError(f.t, err)
	posted, err := f.journal.Post(f.ctx, f.tenantID, f.actorID, d.ID)
	require.NoError(f.t, err)
	return posted
}

func (f *allocFixture) balance(id uuid.UUID) decimal.Decimal {
	f.t.Helper()
	resp, err := f.accounts.Get(f.ctx, f.tenantID, id)
	require.NoError(f.t, err)
	return resp.CurrentBalance
}

func TestEngine_PercentageResidualToFirstTarget(t *testing.T) {
	f := newAllocFixture(t)
	overhead := f.account("6000", ledger.AccountTypeExpense)
	cash := f.account("1000", ledger.AccountTypeAsset)
	deptA := f.account("6100", ledger.AccountTypeExpense)
	deptB := f.account("6200", ledger.AccountTypeExpense)
	deptC := f.account("6300", ledger.AccountTypeExpense)

	_, err := f.rules.CreateRule(f.ctx, f.tenantID, f.actorID, CreateRuleRequest{
		Code:          "OVH",
		Name:          "Overhead split",
		Method:        "percentage",
		EffectiveFrom: testutil.Date(2026, 1, 1),
		Targets: []TargetRequest{
			{AccountID: deptA, Percentage: decimal.RequireFromString("33.33")},
			{AccountID: deptB, Percentage: decimal.RequireFromString("33.33")},
			{AccountID: deptC, Percentage: decimal.RequireFromString("33.34")},
		},
	})
	require.NoError(t, err)

	source := f.post(overhead, cash, "100.00")
	result, err := f.engine.Process(f.ctx, f.tenantID, f.actorID, source.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeAllocated, result.Outcome)

	alloc := result.Allocation
	require.Len(t, alloc.Entries, 3)
	sum := decimal.Zero
	for _, e := range alloc.Entries {
		sum = sum.Add(e.Amount)
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, alloc.Entries[0].Amount.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, alloc.Entries[2].Amount.Equal(decimal.RequireFromString("33.34")))

	assert.True(t, f.balance(overhead).IsZero(), "source debit is fully allocated out")
	assert.True(t, f.balance(deptA).Equal(decimal.RequireFromString("33.33")))

	entry, err := f.journal.Get(f.ctx, f.tenantID, alloc.Entries[0].JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, string(ledger.SourceAllocation), entry.SourceModule)
	assert.Equal(t, string(ledger.EntryStatusPosted), entry.Status)

	again, err := f.engine.Process(f.ctx, f.tenantID, f.actorID, source.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExisting, again.Outcome)
	assert.Equal(t, alloc.ID, again.Allocation.ID)
}

func TestEngine_ResidualGoesToFirstTarget(t *testing.T) {
	f := newAllocFixture(t)
	overhead := f.account("6000", ledger.AccountTypeExpense)
	cash := f.account("1000", ledger.AccountTypeAsset)
	a := f.account("6100", ledger.AccountTypeExpense)
	b := f.account("6200", ledger.AccountTypeExpense)
	c := f.account("6300", ledger.AccountTypeExpense)

	_, err := f.rules.CreateRule(f.ctx, f.tenantID, f.actorID, CreateRuleRequest{
		Code:          "EQ",
		Name:          "Equal split",
		Method:        "equal",
		EffectiveFrom: testutil.Date(2026, 1, 1),
		Targets:       []TargetRequest{{AccountID: a}, {AccountID: b}, {AccountID: c}},
	})
	require.NoError(t, err)

	source := f.post(overhead, cash, "100.00")
	result, err := f.engine.Process(f.ctx, f.tenantID, f.actorID, source.ID)
	require.NoError(t, err)

	amounts := []string{"33.34", "33.33", "33.33"}
	for i, e := range result.Allocation.Entries {
		assert.True(t, e.Amount.Equal(decimal.RequireFromString(amounts[i])), "target %d got %s", i, e.Amount)
	}
}

func TestEngine_ZeroShareTargetIsOmitted(t *testing.T) {
	f := newAllocFixture(t)
	overhead := f.account("6000", ledger.AccountTypeExpense)
	cash := f.account("1000", ledger.AccountTypeAsset)
	a := f.account("6100", ledger.AccountTypeExpense)
	b := f.account("6200", ledger.AccountTypeExpense)
	c := f.account("6300", ledger.AccountTypeExpense)

	_, err := f.rules.CreateRule(f.ctx, f.tenantID, f.actorID, CreateRuleRequest{
		Code:          "EQ3",
		Name:          "Equal three ways",
		Method:        "equal",
		EffectiveFrom: testutil.Date(2026, 1, 1),
		Targets:       []TargetRequest{{AccountID: a}, {AccountID: b}, {AccountID: c}},
	})
	require.NoError(t, err)

	// 0.02 / 3 rounds to 0.01 each and the -0.01 residual zeroes the first target
	source := f.post(overhead, cash, "0.02")
	result, err := f.engine.Process(f.ctx, f.tenantID, f.actorID, source.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeAllocated, result.Outcome)

	entries := result.Allocation.Entries
	require.Len(t, entries, 2)
	assert.Equal(t, b, entries[0].TargetAccountID)
	assert.Equal(t, c, entries[1].TargetAccountID)
	assert.True(t, entries[0].Amount.Add(entries[1].Amount).Equal(result.Allocation.SourceAmount))

	assert.True(t, f.balance(a).IsZero())
	assert.True(t, f.balance(b).Equal(decimal.RequireFromString("0.01")))
	assert.True(t, f.balance(overhead).IsZero())
}

func TestEngine_NoMatchingRule(t *testing.T) {
	f := newAllocFixture(t)
	overhead := f.account("6000", ledger.AccountTypeExpense)
	rent := f.account("6500", ledger.AccountTypeExpense)
	cash := f.account("1000", ledger.AccountTypeAsset)
	a := f.account("6100", ledger.AccountTypeExpense)

	_, err := f.rules.CreateRule(f.ctx, f.tenantID, f.actorID, CreateRuleRequest{
		Code:            "RENT",
		Name:            "Rent only",
		Method:          "equal",
		SourceAccountID: &rent,
		EffectiveFrom:   testutil.Date(2026, 1, 1),
		Targets:         []TargetRequest{{AccountID: a}},
	})
	require.NoError(t, err)

	source := f.post(overhead, cash, "50.00")
	result, err := f.engine.Process(f.ctx, f.tenantID, f.actorID, source.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoRule, result.Outcome)
	assert.Nil(t, result.Allocation)
}

func TestEngine_ProcessPeriodSkipsGeneratedEntries(t *testing.T) {
	f := newAllocFixture(t)
	overhead := f.account("6000", ledger.AccountTypeExpense)
	cash := f.account("1000", ledger.AccountTypeAsset)
	a := f.account("6100", ledger.AccountTypeExpense)
	b := f.account("6200", ledger.AccountTypeExpense)

	_, err := f.rules.CreateRule(f.ctx, f.tenantID, f.actorID, CreateRuleRequest{
		Code:          "W",
		Name:          "Weighted",
		Method:        "weighted",
		EffectiveFrom: testutil.Date(2026, 1, 1),
		Targets: []TargetRequest{
			{AccountID: a, Weight: decimal.NewFromInt(3)},
			{AccountID: b, Weight: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)

	f.post(overhead, cash, "80.00")
	f.post(overhead, cash, "40.00")

	periods, err := f.periods.ListPeriods(f.ctx, f.tenantID)
	require.NoError(t, err)

	summary, err := f.engine.ProcessPeriod(f.ctx, f.tenantID, f.actorID, periods[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Allocated)

	assert.True(t, f.balance(a).Equal(decimal.RequireFromString("90.00")))
	assert.True(t, f.balance(b).Equal(decimal.RequireFromString("30.00")))

	rerun, err := f.engine.ProcessPeriod(f.ctx, f.tenantID, f.actorID, periods[0].ID)
	require.NoError(t, err)
	assert.Zero(t, rerun.Allocated)
}

func TestEngine_ProcessPeriodCancelled(t *testing.T) {
	f := newAllocFixture(t)
	overhead := f.account("6000", ledger.AccountTypeExpense)
	cash := f.account("1000", ledger.AccountTypeAsset)
	f.post(overhead, cash, "10.00")

	periods, err := f.periods.ListPeriods(f.ctx, f.tenantID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	_, err = f.engine.ProcessPeriod(ctx, f.tenantID, f.actorID, periods[0].ID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuleService_CreateRule_Validation(t *testing.T) {
	f := newAllocFixture(t)
	a := f.account("6100", ledger.AccountTypeExpense)

	_, err := f.rules.CreateRule(f.ctx, f.tenantID, f.actorID, CreateRuleRequest{
		Code: "BAD", Name: "Bad", Method: "percentage", EffectiveFrom: testutil.Date(2026, 1, 1),
		Targets: []TargetRequest{{AccountID: a, Percentage: decimal.NewFromInt(90)}},
	})
	assert.Equal(t, ledger.KindAllocation, ledger.KindOfError(err))

	_, err = f.rules.CreateRule(f.ctx, f.tenantID, f.actorID, CreateRuleRequest{
		Code: "GHOST", Name: "Ghost", Method: "equal", EffectiveFrom: testutil.Date(2026, 1, 1),
		Targets: []TargetRequest{{AccountID: uuid.New()}},
	})
	assert.ErrorIs(t, err, ledger.ErrUnknownAccount)

	created, err := f.rules.CreateRule(f.ctx, f.tenantID, f.actorID, CreateRuleRequest{
		Code: "OK", Name: "Ok", Method: "equal", EffectiveFrom: testutil.Date(2026, 1, 1),
		Targets: []TargetRequest{{AccountID: a}},
	})
	require.NoError(t, err)

	_, err = f.rules.CreateRule(f.ctx, f.tenantID, f.actorID, CreateRuleRequest{
		Code: "OK", Name: "Again", Method: "equal", EffectiveFrom: testutil.Date(2026, 1, 1),
		Targets: []TargetRequest{{AccountID: a}},
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateCode)

	updated, err := f.rules.SetRuleStatus(f.ctx, f.tenantID, f.actorID, created.ID, SetRuleStatusRequest{Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, "INACTIVE", updated.Status)

	active, err := f.rules.ListRules(f.ctx, f.tenantID, RuleListFilter{Status: "active"})
	require.NoError(t, err)
	assert.Empty(t, active)
}
