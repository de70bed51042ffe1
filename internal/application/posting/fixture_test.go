package posting

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
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	uow      unitofwork.UnitOfWork
	tenantID uuid.UUID
	actorID  uuid.UUID
	periodID uuid.UUID
	accounts *ledgerapp.AccountService
	journal  *ledgerapp.JournalService
	ap       *APService
	ar       *ARService
	cash     *CashService
	payroll  *PayrollService
	assets   *AssetService
	ids      map[string]uuid.UUID
}

// chart is the minimal chart the subledger tests post against
var chart = []struct {
	code string
	typ  ledger.AccountType
}{
	{"1000", ledger.AccountTypeAsset},
	{"1010", ledger.AccountTypeAsset},
	{"1200", ledger.AccountTypeAsset},
	{"1500", ledger.AccountTypeAsset},
	{"1590", ledger.AccountTypeAsset},
	{"2000", ledger.AccountTypeLiability},
	{"2100", ledger.AccountTypeLiability},
	{"2200", ledger.AccountTypeLiability},
	{"2300", ledger.AccountTypeLiability},
	{"2310", ledger.AccountTypeLiability},
	{"2400", ledger.AccountTypeLiability},
	{"3000", ledger.AccountTypeEquity},
	{"4000", ledger.AccountTypeRevenue},
	{"6000", ledger.AccountTypeExpense},
	{"6100", ledger.AccountTypeExpense},
	{"6110", ledger.AccountTypeExpense},
	{"6200", ledger.AccountTypeExpense},
	{"7900", ledger.AccountTypeExpense},
	{"7950", ledger.AccountTypeExpense},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	uow := persistence.NewGormUnitOfWork(db, nil)
	settings := ledgerapp.NewSettings(config.LedgerConfig{
		BaseCurrency: "USD",
		DefaultScale: 2,
		ControlAccounts: config.ControlAccounts{
			AccountsReceivable:       "1200",
			AccountsPayable:          "2000",
			TaxPayable:               "2200",
			NetPayClearing:           "2100",
			GrossPayExpense:          "6100",
			EmployerTaxExpense:       "6110",
			TaxWithholding:           "2300",
			BenefitWithholding:       "2310",
			DepreciationExpense:      "6200",
			AccumulatedDepreciation:  "1590",
			DisposalGainLoss:         "7900",
			ReconciliationAdjustment: "7950",
		},
	})
	logger := zap.NewNop()
	recorder := auditapp.NewRecorder(time.Second, logger)
	journal := ledgerapp.NewJournalService(uow, recorder, settings, logger)

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		uow:      uow,
		tenantID: testutil.TestTenantID(),
		actorID:  testutil.TestUserID(),
		accounts: ledgerapp.NewAccountService(uow, recorder, settings, logger),
		journal:  journal,
		ap:       NewAPService(uow, journal, recorder, settings, logger),
		ar:       NewARService(uow, journal, recorder, settings, logger),
		cash:     NewCashService(uow, journal, recorder, settings, logger),
		payroll:  NewPayrollService(uow, journal, recorder, settings, logger),
		assets:   NewAssetService(uow, journal, recorder, settings, logger),
		ids:      make(map[string]uuid.UUID),
	}
	for _, a := range chart {
		resp, err := f.accounts.Create(f.ctx, f.tenantID, f.actorID, ledgerapp.CreateAccountRequest{
			Code: a.code, Name: "Account " + a.code, Type: string(a.typ),
		})
		require.NoError(t, err)
		f.ids[a.code] = resp.ID
	}

	periods := ledgerapp.NewPeriodService(uow, journal, recorder, settings, logger)
	p, err := periods.CreatePeriod(f.ctx, f.tenantID, f.actorID, ledgerapp.CreatePeriodRequest{
		Label:      "2026-03",
		PeriodType: string(ledger.PeriodTypeMonth),
		StartDate:  testutil.Date(2026, 3, 1),
		EndDate:    testutil.Date(2026, 3, 31),
	})
	require.NoError(t, err)
	f.periodID = p.ID
	return f
}

func (f *fixture) id(code string) uuid.UUID {
	id, ok := f.ids[code]
	require.True(f.t, ok, "no account %s", code)
	return id
}

func (f *fixture) balance(code string) decimal.Decimal {
	f.t.Helper()
	resp, err := f.accounts.Get(f.ctx, f.tenantID, f.id(code))
	require.NoError(f.t, err)
	return resp.CurrentBalance
}

func (f *fixture) requireBalance(code, want string) {
	f.t.Helper()
	got := f.balance(code)
	require.True(f.t, got.Equal(d(want)), "account %s balance %s, want %s", code, got, want)
}

func (f *fixture) bankAccount() uuid.UUID {
	f.t.Helper()
	resp, err := f.cash.CreateBankAccount(f.ctx, f.tenantID, f.actorID, CreateBankAccountRequest{
		Name:        "Operating",
		GLAccountID: f.id("1000"),
	})
	require.NoError(f.t, err)
	return resp.ID
}

func march(day int) time.Time {
	return testutil.Date(2026, 3, day)
}
